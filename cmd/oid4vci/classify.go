package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"

	"github.com/tbd54566975/oid4vci/pkg/authorization"
	"github.com/tbd54566975/oid4vci/pkg/credential"
	"github.com/tbd54566975/oid4vci/pkg/metadata"
	"github.com/tbd54566975/oid4vci/pkg/profile"
	"github.com/tbd54566975/oid4vci/pkg/variant"
)

type classifyFlags struct {
	// issuer, when set, is asked for its metadata so that identifier-addressed objects can be resolved.
	issuer string
}

// classified is the part of a variant object that is reported.
type classified interface {
	Kind() variant.Kind
	ID() string
	Format() profile.Format
}

func newClassifyAuthorizationCommand(a *app) *cobra.Command {
	flags := &classifyFlags{}
	cmd := &cobra.Command{
		Use:   "classify-authorization <file>",
		Short: "prints the variant of each authorization_details entry in a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return errors.Wrap(err, "reading authorization details")
			}
			details, err := parseDetails(data)
			if err != nil {
				return err
			}
			if flags.issuer != "" {
				configurations, err := a.configurations(cmd.Context(), flags.issuer)
				if err != nil {
					return err
				}
				if details, err = details.Resolve(configurations); err != nil {
					return err
				}
			}
			for i, d := range details {
				printClassified(cmd.OutOrStdout(), i, d, variant.FieldCredentialConfigurationID)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&flags.issuer, "issuer", "", "credential issuer to resolve credential_configuration_id entries against")
	return cmd
}

func newClassifyRequestCommand(a *app) *cobra.Command {
	flags := &classifyFlags{}
	cmd := &cobra.Command{
		Use:   "classify-request <file>",
		Short: "prints the variant of a credential request, or of each request of a batch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return errors.Wrap(err, "reading credential request")
			}
			requests, err := parseRequests(data)
			if err != nil {
				return err
			}
			if flags.issuer != "" {
				configurations, err := a.configurations(cmd.Context(), flags.issuer)
				if err != nil {
					return err
				}
				for i := range requests {
					if requests[i].Kind() == variant.KindWithFormat {
						continue
					}
					if requests[i], err = requests[i].Resolve(configurations); err != nil {
						return errors.Wrapf(err, "resolving credential request %d", i)
					}
				}
			}
			for i, r := range requests {
				printClassified(cmd.OutOrStdout(), i, r, variant.FieldCredentialIdentifier)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&flags.issuer, "issuer", "", "credential issuer to resolve credential_identifier requests against")
	return cmd
}

// parseDetails accepts either an authorization_details array or a single entry.
func parseDetails(data []byte) (authorization.Details, error) {
	if gjson.ParseBytes(data).IsArray() {
		var details authorization.Details
		if err := json.Unmarshal(data, &details); err != nil {
			return nil, errors.Wrap(err, "parsing authorization details")
		}
		return details, nil
	}
	var detail authorization.Detail
	if err := json.Unmarshal(data, &detail); err != nil {
		return nil, errors.Wrap(err, "parsing authorization detail")
	}
	return authorization.Details{detail}, nil
}

// parseRequests accepts either a credential request or a batch credential request.
func parseRequests(data []byte) ([]credential.Request, error) {
	if gjson.GetBytes(data, "credential_requests").Exists() {
		var batch credential.BatchRequest
		if err := json.Unmarshal(data, &batch); err != nil {
			return nil, errors.Wrap(err, "parsing batch credential request")
		}
		if err := batch.IsValid(); err != nil {
			return nil, err
		}
		return batch.CredentialRequests, nil
	}
	var r credential.Request
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, errors.Wrap(err, "parsing credential request")
	}
	return []credential.Request{r}, nil
}

func printClassified(out io.Writer, i int, c classified, idField string) {
	switch c.Kind() {
	case variant.KindWithFormat:
		fmt.Fprintf(out, "%d\t%s\tformat=%s\n", i, c.Kind(), c.Format())
	case variant.KindWithIDUnresolved:
		fmt.Fprintf(out, "%d\t%s\t%s=%s\n", i, c.Kind(), idField, c.ID())
	default:
		fmt.Fprintf(out, "%d\t%s\t%s=%s\tformat=%s\n", i, c.Kind(), idField, c.ID(), c.Format())
	}
}

func (a *app) configurations(ctx context.Context, issuer string) (map[string]profile.Configuration, error) {
	client := metadata.NewClient(a.cfg.Metadata.Timeout, a.cfg.Metadata.MaxRetries)
	m, err := client.IssuerMetadata(ctx, issuer)
	if err != nil {
		return nil, err
	}
	return m.Configurations(), nil
}
