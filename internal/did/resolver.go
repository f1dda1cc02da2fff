package did

import (
	"context"
	"fmt"
	"time"

	didsdk "github.com/TBD54566975/ssi-sdk/did"
	"github.com/TBD54566975/ssi-sdk/did/key"
	"github.com/TBD54566975/ssi-sdk/did/peer"
	"github.com/TBD54566975/ssi-sdk/did/pkh"
	"github.com/TBD54566975/ssi-sdk/did/resolution"
	"github.com/TBD54566975/ssi-sdk/did/web"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/tbd54566975/oid4vci/internal/util"
)

// BuildMultiMethodResolver builds a multi method DID resolver from a list of methods to support resolution for
func BuildMultiMethodResolver(methods []string) (*resolution.MultiMethodResolver, error) {
	if len(methods) == 0 {
		return nil, errors.New("no methods provided")
	}
	resolvers := make([]resolution.Resolver, 0, len(methods))
	for _, method := range methods {
		resolver, err := getKnownResolver(method)
		if err != nil {
			// if we can't create a resolver for a method, we just skip it since not all methods are supported locally
			logrus.WithError(err).Errorf("failed to create resolver for method %s", method)
			continue
		}
		resolvers = append(resolvers, resolver)
	}
	if len(resolvers) == 0 {
		return nil, errors.New("no resolvers created")
	}
	return resolution.NewResolver(resolvers...)
}

// all possible resolvers for local resolution
func getKnownResolver(method string) (resolution.Resolver, error) {
	switch didsdk.Method(method) {
	case didsdk.KeyMethod:
		return new(key.Resolver), nil
	case didsdk.WebMethod:
		return new(web.Resolver), nil
	case didsdk.PKHMethod:
		return new(pkh.Resolver), nil
	case didsdk.PeerMethod:
		return new(peer.Resolver), nil
	}
	return nil, fmt.Errorf("unsupported method: %s", method)
}

// Resolver resolves DIDs locally for the configured methods and falls back to a universal resolver
// for every other method, when one is configured.
type Resolver struct {
	resolutionMethods []string
	lr                resolution.Resolver
	ur                *universalResolver
}

var _ resolution.Resolver = (*Resolver)(nil)

// NewResolver creates a Resolver. At least one of localResolutionMethods or universalResolverURL is required.
func NewResolver(localResolutionMethods []string, universalResolverURL string, timeout time.Duration) (*Resolver, error) {
	if len(localResolutionMethods) == 0 && universalResolverURL == "" {
		return nil, errors.New("either local resolution methods or a universal resolver url are required")
	}

	var lr resolution.Resolver
	var err error
	if len(localResolutionMethods) > 0 {
		lr, err = BuildMultiMethodResolver(localResolutionMethods)
		if err != nil {
			return nil, errors.Wrap(err, "instantiating local DID resolver")
		}
	}

	var ur *universalResolver
	if universalResolverURL != "" {
		ur, err = newUniversalResolver(universalResolverURL, timeout)
		if err != nil {
			return nil, errors.Wrap(err, "instantiating universal resolver")
		}
	}

	return &Resolver{
		resolutionMethods: localResolutionMethods,
		lr:                lr,
		ur:                ur,
	}, nil
}

// Resolve resolves a DID. The ordering is as follows:
// 1. Try to resolve with the local resolver, if it supports the DID's method
// 2. Try to resolve with the universal resolver
func (r *Resolver) Resolve(ctx context.Context, did string, opts ...resolution.Option) (*resolution.Result, error) {
	method, err := util.GetMethodForDID(did)
	if err != nil {
		return nil, errors.Wrap(err, "getting method DID")
	}

	if r.lr != nil && lo.Contains(r.lr.Methods(), method) {
		locallyResolvedDID, err := r.lr.Resolve(ctx, did, opts...)
		if err == nil {
			return locallyResolvedDID, nil
		}
		logrus.WithError(err).Errorf("error resolving DID<%s> with local resolver", util.SanitizeLog(did))
	}

	if r.ur != nil {
		universallyResolvedDID, err := r.ur.Resolve(ctx, did, opts...)
		if err == nil {
			return universallyResolvedDID, nil
		}
		logrus.WithError(err).Errorf("error resolving DID<%s> with universal resolver", util.SanitizeLog(did))
	}

	return nil, fmt.Errorf("unable to resolve DID %s", did)
}

// Methods returns the locally resolvable methods.
func (r *Resolver) Methods() []didsdk.Method {
	methods := make([]didsdk.Method, 0, len(r.resolutionMethods))
	for _, m := range r.resolutionMethods {
		methods = append(methods, didsdk.Method(m))
	}
	return methods
}
