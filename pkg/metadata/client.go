package metadata

import (
	"bufio"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbd54566975/oid4vci/internal/util"
)

const tracerName = "github.com/tbd54566975/oid4vci/pkg/metadata"

// Client fetches issuer metadata and credential offers.
type Client struct {
	client     *http.Client
	maxRetries uint64
	newBackOff func() backoff.BackOff
}

func NewClient(timeout time.Duration, maxRetries uint64) *Client {
	return &Client{
		client: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   timeout,
		},
		maxRetries: maxRetries,
		newBackOff: func() backoff.BackOff { return backoff.NewExponentialBackOff() },
	}
}

// IssuerMetadata fetches and validates the metadata of a credential issuer.
func (c *Client) IssuerMetadata(ctx context.Context, issuer string) (*CredentialIssuerMetadata, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "metadata.IssuerMetadata")
	defer span.End()
	span.SetAttributes(attribute.String("issuer", issuer))

	var m CredentialIssuerMetadata
	if err := c.getJSON(ctx, MetadataURL(issuer), &m); err != nil {
		return nil, errors.Wrapf(err, "fetching metadata of issuer<%s>", issuer)
	}
	if m.CredentialIssuer != issuer {
		return nil, errors.Wrapf(ErrIssuerMismatch, "requested<%s>, got<%s>", issuer, m.CredentialIssuer)
	}
	if err := m.IsValid(); err != nil {
		return nil, errors.Wrap(err, "invalid issuer metadata")
	}
	return &m, nil
}

// CredentialOffer returns the offer of a reference, fetching it when passed by URI.
func (c *Client) CredentialOffer(ctx context.Context, ref OfferReference) (*CredentialOffer, error) {
	if ref.Offer != nil {
		return ref.Offer, nil
	}
	if ref.URI == "" {
		return nil, errors.New("offer reference is empty")
	}
	ctx, span := otel.Tracer(tracerName).Start(ctx, "metadata.CredentialOffer")
	defer span.End()

	var offer CredentialOffer
	if err := c.getJSON(ctx, ref.URI, &offer); err != nil {
		return nil, errors.Wrap(err, "fetching credential offer")
	}
	if err := offer.IsValid(); err != nil {
		return nil, errors.Wrap(err, "invalid credential offer")
	}
	return &offer, nil
}

// getJSON retries transport errors and 5xx responses. Other failures are permanent.
func (c *Client) getJSON(ctx context.Context, url string, v any) error {
	var body []byte
	attempt := 0
	op := func() error {
		attempt++
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(errors.Wrap(err, "creating request"))
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			logrus.WithError(err).Debugf("attempt %d to get %s failed, retrying..", attempt, util.SanitizeLog(url))
			return errors.Wrap(err, "performing http get")
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(bufio.NewReader(resp.Body))
		if err != nil {
			return errors.Wrap(err, "reading response body")
		}
		if util.Is5xxResponse(resp.StatusCode) {
			logrus.Debugf("attempt %d to get %s returned status<%d>, retrying..", attempt, util.SanitizeLog(url), resp.StatusCode)
			return errors.Errorf("status<%d>", resp.StatusCode)
		}
		if !util.Is2xxResponse(resp.StatusCode) {
			return backoff.Permanent(errors.Errorf("status<%d>: %s", resp.StatusCode, util.SanitizeLog(string(respBody))))
		}
		body = respBody
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(c.newBackOff(), c.maxRetries), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		span := trace.SpanFromContext(ctx)
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		return errors.Wrapf(err, "after %d attempts", attempt)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return errors.Wrap(err, "unmarshalling JSON")
	}
	return nil
}
