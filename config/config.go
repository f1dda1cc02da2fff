package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/ardanlabs/conf"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/tbd54566975/oid4vci/pkg/proof"
)

const (
	DefaultConfigPath = "config/config.toml"
	ConfigFileName    = "config.toml"
	ConfigExtension   = ".toml"

	// EnvConfigPath overrides the config file path.
	EnvConfigPath = "OID4VCI_CONFIG_PATH"
)

type Config struct {
	conf.Version
	Proof      ProofConfig      `toml:"proof"`
	Resolution ResolutionConfig `toml:"resolution"`
	Metadata   MetadataConfig   `toml:"metadata"`
	Log        LogConfig        `toml:"log"`
}

// ProofConfig represents configurable properties for generating and verifying proofs of possession.
type ProofConfig struct {
	NBFTolerance time.Duration `toml:"nbf_tolerance" conf:"default:0s"`
	EXPTolerance time.Duration `toml:"exp_tolerance" conf:"default:0s"`
	Validity     time.Duration `toml:"validity" conf:"default:5m"`
	// AllowedAlgorithms restricts the JWS algorithms of proofs. When empty every asymmetric algorithm is allowed.
	AllowedAlgorithms []string `toml:"allowed_algorithms"`
}

// Algorithms returns the allowed algorithms as JWA identifiers.
func (p ProofConfig) Algorithms() ([]jwa.SignatureAlgorithm, error) {
	if len(p.AllowedAlgorithms) == 0 {
		return proof.DefaultAllowedAlgorithms, nil
	}
	algs := make([]jwa.SignatureAlgorithm, 0, len(p.AllowedAlgorithms))
	for _, a := range p.AllowedAlgorithms {
		var alg jwa.SignatureAlgorithm
		if err := alg.Accept(a); err != nil {
			return nil, errors.Wrapf(err, "allowed algorithm<%s>", a)
		}
		algs = append(algs, alg)
	}
	return algs, nil
}

// ResolutionConfig represents configurable properties for resolving the DIDs that proofs are signed with.
type ResolutionConfig struct {
	Methods              []string      `toml:"methods" conf:"default:key;web;peer;pkh"`
	UniversalResolverURL string        `toml:"universal_resolver_url"`
	Timeout              time.Duration `toml:"timeout" conf:"default:10s"`
}

// MetadataConfig represents configurable properties for fetching issuer metadata and credential offers.
type MetadataConfig struct {
	Timeout    time.Duration `toml:"timeout" conf:"default:10s"`
	MaxRetries uint64        `toml:"max_retries" conf:"default:3"`
}

type LogConfig struct {
	Level    string `toml:"level" conf:"default:info"`
	Location string `toml:"location"`
}

// LoadConfig attempts to load a TOML config file from the given path, and coerce it into our object model.
// Before loading, defaults and the arguments are applied. Values in the TOML file take precedence.
// Nil is returned without an error when the arguments ask for help or the version.
func LoadConfig(path string, args ...string) (*Config, error) {
	// no path, load default config
	defaultConfig := false
	if path == "" {
		logrus.Info("no config path provided, loading default config...")
		defaultConfig = true
	} else if filepath.Ext(path) != ConfigExtension {
		return nil, fmt.Errorf("path<%s> did not match the expected TOML format", path)
	}

	config := Config{Version: conf.Version{SVN: Version(), Desc: Description()}}

	// parse and apply defaults
	if err := conf.Parse(args, ServiceName, &config); err != nil {
		switch {
		case errors.Is(err, conf.ErrHelpWanted):
			usage, err := conf.Usage(ServiceName, &config)
			if err != nil {
				return nil, errors.Wrap(err, "parsing config")
			}
			fmt.Println(usage)

			return nil, nil

		case errors.Is(err, conf.ErrVersionWanted):
			version, err := conf.VersionString(ServiceName, &config)
			if err != nil {
				return nil, errors.Wrap(err, "generating config version")
			}

			fmt.Println(version)
			return nil, nil
		}

		return nil, errors.Wrap(err, "parsing config")
	}

	if !defaultConfig {
		// load from TOML file
		if _, err := toml.DecodeFile(path, &config); err != nil {
			return nil, errors.Wrapf(err, "could not load config: %s", path)
		}
	}

	if err := config.validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c Config) validate() error {
	if c.Proof.Validity <= 0 {
		return errors.New("proof validity must be positive")
	}
	if c.Proof.NBFTolerance < 0 || c.Proof.EXPTolerance < 0 {
		return errors.New("proof tolerances cannot be negative")
	}
	if _, err := c.Proof.Algorithms(); err != nil {
		return err
	}
	if len(c.Resolution.Methods) == 0 && c.Resolution.UniversalResolverURL == "" {
		return errors.New("at least one resolution method or a universal resolver url is required")
	}
	return nil
}
