package main

import (
	"bytes"
	"os"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/tbd54566975/oid4vci/internal/did"
	"github.com/tbd54566975/oid4vci/pkg/proof"
)

type verifyProofFlags struct {
	issuer      string
	audience    string
	nonce       string
	expectedDID string
}

// verifiedProof is printed once a proof verifies.
type verifiedProof struct {
	Issuer             string `json:"iss"`
	Audience           string `json:"aud"`
	Nonce              string `json:"jti"`
	ExpiresAt          int64  `json:"exp"`
	VerificationMethod string `json:"verification_method,omitempty"`
	DID                string `json:"did,omitempty"`
	KeyType            string `json:"kty"`
}

func newVerifyProofCommand(a *app) *cobra.Command {
	flags := &verifyProofFlags{}
	cmd := &cobra.Command{
		Use:   "verify-proof <file>",
		Short: "parses and verifies a proof of possession, given as a JWT or a credential request proof object",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return errors.Wrap(err, "reading proof")
			}

			algs, err := a.cfg.Proof.Algorithms()
			if err != nil {
				return err
			}
			resolver, err := did.NewResolver(a.cfg.Resolution.Methods, a.cfg.Resolution.UniversalResolverURL, a.cfg.Resolution.Timeout)
			if err != nil {
				return errors.Wrap(err, "creating did resolver")
			}
			keyResolver := proof.NewDIDKeyResolver(resolver)
			opt := proof.WithAllowedAlgorithms(algs...)

			var pop *proof.ProofOfPossession
			if data = bytes.TrimSpace(data); bytes.HasPrefix(data, []byte("{")) {
				var p proof.Proof
				if err = json.Unmarshal(data, &p); err != nil {
					return errors.Wrap(err, "parsing proof object")
				}
				pop, err = proof.FromProof(cmd.Context(), p, keyResolver, opt)
			} else {
				pop, err = proof.FromJWT(cmd.Context(), string(data), keyResolver, opt)
			}
			if err != nil {
				return errors.Wrap(err, "parsing proof")
			}

			err = pop.Verify(proof.VerifyParams{
				Issuer:       flags.issuer,
				Audience:     flags.audience,
				Nonce:        flags.nonce,
				ExpectedDID:  flags.expectedDID,
				NBFTolerance: a.cfg.Proof.NBFTolerance,
				EXPTolerance: a.cfg.Proof.EXPTolerance,
			})
			if err != nil {
				return errors.Wrap(err, "verifying proof")
			}

			out := verifiedProof{
				Issuer:             pop.Body.Issuer,
				Audience:           pop.Body.Audience,
				Nonce:              pop.Body.Nonce,
				ExpiresAt:          int64(pop.Body.ExpiresAt),
				VerificationMethod: pop.Controller.VerificationMethod,
				DID:                pop.Controller.DID,
				KeyType:            pop.Controller.Key.KeyType().String(),
			}
			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			return encoder.Encode(out)
		},
	}
	cmd.Flags().StringVar(&flags.issuer, "issuer", "", "expected iss, the client_id of the wallet")
	cmd.Flags().StringVar(&flags.audience, "audience", "", "expected aud, the credential issuer url")
	cmd.Flags().StringVar(&flags.nonce, "nonce", "", "expected c_nonce")
	cmd.Flags().StringVar(&flags.expectedDID, "did", "", "expected DID controlling the proof key")
	_ = cmd.MarkFlagRequired("audience")
	return cmd
}
