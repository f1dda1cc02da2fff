package authorization

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"net/url"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"

	"github.com/tbd54566975/oid4vci/internal/validation"
)

const (
	ResponseTypeCode = "code"

	CodeChallengeMethodS256  = "S256"
	CodeChallengeMethodPlain = "plain"
)

// Request is an authorization request of the authorization code flow. Credentials are requested through
// authorization details, scopes, or both.
type Request struct {
	ResponseType         string  `json:"response_type" validate:"required,eq=code"`
	ClientID             string  `json:"client_id" validate:"required"`
	RedirectURI          string  `json:"redirect_uri,omitempty" validate:"omitempty,url"`
	State                string  `json:"state,omitempty"`
	Scope                string  `json:"scope,omitempty"`
	AuthorizationDetails Details `json:"authorization_details,omitempty"`

	// WalletIssuer is the wallet's OpenID Connect issuer URL, used by the issuer to discover wallet capabilities.
	WalletIssuer string `json:"wallet_issuer,omitempty" validate:"omitempty,url"`
	// UserHint is an opaque hint about the end-user, for the wallet's own use.
	UserHint string `json:"user_hint,omitempty"`
	// IssuerState is the issuer_state of the authorization_code grant of a credential offer.
	IssuerState string `json:"issuer_state,omitempty"`

	CodeChallenge       string `json:"code_challenge,omitempty" validate:"required_with=CodeChallengeMethod"`
	CodeChallengeMethod string `json:"code_challenge_method,omitempty" validate:"omitempty,oneof=S256 plain"`
}

func (r Request) IsValid() error {
	if err := validation.Struct(r); err != nil {
		return err
	}
	if len(r.AuthorizationDetails) == 0 && r.Scope == "" {
		return errors.New("either authorization_details or scope is required")
	}
	return nil
}

// Values encodes the request as query parameters.
func (r Request) Values() (url.Values, error) {
	if err := r.IsValid(); err != nil {
		return nil, errors.Wrap(err, "invalid authorization request")
	}
	values := url.Values{}
	values.Set("response_type", r.ResponseType)
	values.Set("client_id", r.ClientID)
	if len(r.AuthorizationDetails) > 0 {
		details, err := json.Marshal(r.AuthorizationDetails)
		if err != nil {
			return nil, errors.Wrap(err, "marshalling authorization details")
		}
		values.Set("authorization_details", string(details))
	}
	optional := map[string]string{
		"redirect_uri":          r.RedirectURI,
		"state":                 r.State,
		"scope":                 r.Scope,
		"wallet_issuer":         r.WalletIssuer,
		"user_hint":             r.UserHint,
		"issuer_state":          r.IssuerState,
		"code_challenge":        r.CodeChallenge,
		"code_challenge_method": r.CodeChallengeMethod,
	}
	for k, v := range optional {
		if v != "" {
			values.Set(k, v)
		}
	}
	return values, nil
}

// URL returns the URL to send the end-user to at the authorization endpoint. Query parameters already
// present on the endpoint are kept.
func (r Request) URL(authorizationEndpoint string) (*url.URL, error) {
	u, err := url.Parse(authorizationEndpoint)
	if err != nil {
		return nil, errors.Wrap(err, "parsing authorization endpoint")
	}
	if !u.IsAbs() {
		return nil, errors.Errorf("authorization endpoint<%s> must be an absolute URL", authorizationEndpoint)
	}
	values, err := r.Values()
	if err != nil {
		return nil, err
	}
	query := u.Query()
	for k, vs := range values {
		query[k] = vs
	}
	u.RawQuery = query.Encode()
	return u, nil
}

// ParseRequest decodes an authorization request from query parameters.
func ParseRequest(values url.Values) (*Request, error) {
	r := Request{
		ResponseType:        values.Get("response_type"),
		ClientID:            values.Get("client_id"),
		RedirectURI:         values.Get("redirect_uri"),
		State:               values.Get("state"),
		Scope:               values.Get("scope"),
		WalletIssuer:        values.Get("wallet_issuer"),
		UserHint:            values.Get("user_hint"),
		IssuerState:         values.Get("issuer_state"),
		CodeChallenge:       values.Get("code_challenge"),
		CodeChallengeMethod: values.Get("code_challenge_method"),
	}
	if details := values.Get("authorization_details"); details != "" {
		if err := json.Unmarshal([]byte(details), &r.AuthorizationDetails); err != nil {
			return nil, errors.Wrap(err, "parsing authorization_details")
		}
	}
	if err := r.IsValid(); err != nil {
		return nil, errors.Wrap(err, "invalid authorization request")
	}
	return &r, nil
}

// PKCE holds a code verifier and its S256 challenge.
type PKCE struct {
	Verifier  string
	Challenge string
	Method    string
}

// NewPKCE generates a random code verifier and derives its S256 challenge.
func NewPKCE() (*PKCE, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return nil, errors.Wrap(err, "generating code verifier")
	}
	verifier := base64.RawURLEncoding.EncodeToString(buf)
	return &PKCE{Verifier: verifier, Challenge: S256Challenge(verifier), Method: CodeChallengeMethodS256}, nil
}

func S256Challenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// Apply sets the challenge on an authorization request.
func (p PKCE) Apply(r *Request) {
	r.CodeChallenge = p.Challenge
	r.CodeChallengeMethod = p.Method
}
