package did

import (
	"bufio"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	didsdk "github.com/TBD54566975/ssi-sdk/did"
	"github.com/TBD54566975/ssi-sdk/did/resolution"
	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/tbd54566975/oid4vci/internal/util"
)

const (
	identifiersPath = "/1.0/identifiers/"
	methodsPath     = "/1.0/methods"

	// resolutionMediaType asks for the full resolution result rather than the bare document.
	resolutionMediaType = `application/ld+json;profile="https://w3id.org/did-resolution"`
)

var (
	ErrDIDNotFound     = errors.New("DID not found")
	ErrInvalidDID      = errors.New("invalid DID")
	ErrResolverFailure = errors.New("universal resolver failure")
)

// universalResolver resolves DIDs of any method through a universal resolver instance
// (https://github.com/decentralized-identity/universal-resolver).
type universalResolver struct {
	client  *http.Client
	baseURL string

	mu      sync.Mutex
	methods []didsdk.Method
}

var _ resolution.Resolver = (*universalResolver)(nil)

func newUniversalResolver(baseURL string, timeout time.Duration) (*universalResolver, error) {
	if u, err := url.Parse(baseURL); err != nil || !u.IsAbs() {
		return nil, errors.Errorf("universal resolver url<%s> must be an absolute url", baseURL)
	}
	return &universalResolver{
		client: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   timeout,
		},
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}, nil
}

// Resolve fetches the resolution result of did. Error statuses and resolution metadata errors map to
// ErrDIDNotFound, ErrInvalidDID or ErrResolverFailure.
func (ur *universalResolver) Resolve(ctx context.Context, did string, _ ...resolution.Option) (*resolution.Result, error) {
	status, body, err := ur.get(ctx, identifiersPath+url.PathEscape(did), resolutionMediaType)
	if err != nil {
		return nil, errors.Wrapf(ErrResolverFailure, "resolving DID<%s>: %s", did, err)
	}
	switch {
	case status == http.StatusNotFound:
		return nil, errors.Wrapf(ErrDIDNotFound, "universal resolver returned status<%d> for DID<%s>", status, did)
	case status == http.StatusBadRequest:
		return nil, errors.Wrapf(ErrInvalidDID, "universal resolver returned status<%d> for DID<%s>", status, did)
	case !util.Is2xxResponse(status):
		return nil, errors.Wrapf(ErrResolverFailure, "status<%d>: %s", status, util.SanitizeLog(string(body)))
	}

	var result resolution.Result
	if err = json.Unmarshal(body, &result); err != nil {
		return nil, errors.Wrapf(ErrResolverFailure, "decoding resolution result: %s", err)
	}
	if metadataErr := result.Metadata.Error; metadataErr != nil {
		switch {
		case metadataErr.NotFound:
			return nil, errors.Wrapf(ErrDIDNotFound, "DID<%s>", did)
		case metadataErr.InvalidDID:
			return nil, errors.Wrapf(ErrInvalidDID, "DID<%s>", did)
		}
		return nil, errors.Wrapf(ErrResolverFailure, "resolution error<%s> for DID<%s>", metadataErr.Code, did)
	}
	switch result.Document.ID {
	case "":
		return nil, errors.Wrapf(ErrDIDNotFound, "no document for DID<%s>", did)
	case did:
		return &result, nil
	}
	return nil, errors.Wrapf(ErrResolverFailure, "requested DID<%s>, got document<%s>", did, result.Document.ID)
}

// Methods lists the methods the instance supports. A successful listing is cached; failures are
// logged and yield no methods.
func (ur *universalResolver) Methods() []didsdk.Method {
	ur.mu.Lock()
	defer ur.mu.Unlock()
	if len(ur.methods) > 0 {
		return ur.methods
	}

	status, body, err := ur.get(context.Background(), methodsPath, "application/json")
	if err == nil && !util.Is2xxResponse(status) {
		err = errors.Errorf("status<%d>", status)
	}
	var methods []didsdk.Method
	if err == nil {
		err = json.Unmarshal(body, &methods)
	}
	if err != nil {
		logrus.WithError(err).Error("could not list universal resolver methods")
		return nil
	}
	ur.methods = methods
	return methods
}

func (ur *universalResolver) get(ctx context.Context, path, accept string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ur.baseURL+path, nil)
	if err != nil {
		return 0, nil, errors.Wrap(err, "creating request")
	}
	req.Header.Set("Accept", accept)

	resp, err := ur.client.Do(req)
	if err != nil {
		return 0, nil, errors.Wrap(err, "performing http get")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(bufio.NewReader(resp.Body))
	if err != nil {
		return 0, nil, errors.Wrap(err, "reading response body")
	}
	return resp.StatusCode, body, nil
}
