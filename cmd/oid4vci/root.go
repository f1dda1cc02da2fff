package main

import (
	"io"
	"os"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/tbd54566975/oid4vci/config"
)

// app carries the state shared by every subcommand once the config is loaded.
type app struct {
	configPath string
	cfg        *config.Config
	logFile    *os.File
}

func newRootCommand() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:          config.Name(),
		Short:        "inspects OpenID4VCI protocol messages and proofs of possession",
		Long:         config.Description(),
		Version:      config.Version(),
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load()
		},
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			a.close()
		},
		Run: func(cmd *cobra.Command, args []string) {
			cmd.HelpFunc()(cmd, args)
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "",
		"path to a TOML config file, overriding $"+config.EnvConfigPath)

	root.AddCommand(newClassifyAuthorizationCommand(a))
	root.AddCommand(newClassifyRequestCommand(a))
	root.AddCommand(newVerifyProofCommand(a))
	return root
}

func (a *app) load() error {
	configPath := a.configPath
	if configPath == "" {
		if envConfigPath, present := os.LookupEnv(config.EnvConfigPath); present {
			logrus.Infof("loading config from env var path: %s", envConfigPath)
			configPath = envConfigPath
		}
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return errors.Wrap(err, "could not instantiate config")
	}
	if cfg == nil {
		return errors.New("no config loaded")
	}
	a.cfg = cfg
	a.logFile = configureLogger(cfg.Log.Level, cfg.Log.Location)
	return nil
}

func (a *app) close() {
	if a.logFile == nil {
		return
	}
	if err := a.logFile.Close(); err != nil {
		logrus.WithError(err).Error("failed to close log file")
	}
	a.logFile = nil
}

// configureLogger configures the logger to logs to the given location and returns a file pointer to a logs
// file that should be closed once the command completes. Logs go to stderr so that command output stays
// parseable.
func configureLogger(level, location string) *os.File {
	if level != "" {
		logLevel, err := logrus.ParseLevel(level)
		if err != nil {
			logrus.WithError(err).Errorf("could not parse log level<%s>, setting to info", level)
			logrus.SetLevel(logrus.InfoLevel)
		} else {
			logrus.SetLevel(logLevel)
		}
	}

	logrus.SetFormatter(&logrus.JSONFormatter{
		DisableTimestamp: false,
	})
	logrus.SetReportCaller(true)

	now := time.Now()
	logrus.SetOutput(os.Stderr)
	if location != "" {
		logFile := location + "/" + config.ServiceName + "-" + now.Format("2006-01-02") + "-" + strconv.FormatInt(now.Unix(), 10) + ".log"
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			logrus.WithError(err).Warn("failed to create logs file, using default stderr")
			return nil
		}
		logrus.SetOutput(io.MultiWriter(os.Stderr, file))
		return file
	}
	return nil
}
