package util

import (
	"strings"

	didsdk "github.com/TBD54566975/ssi-sdk/did"
	"github.com/pkg/errors"
)

// GetMethodForDID gets a DID method from a did, the second part of the did (e.g. did:test:abcd, the method is 'test')
func GetMethodForDID(did string) (didsdk.Method, error) {
	split := strings.Split(did, ":")
	if len(split) < 3 {
		return "", errors.New("malformed did: did has fewer than three parts")
	}
	if split[0] != "did" {
		return "", errors.New("malformed did: did must start with `did`")
	}
	if split[1] == "" {
		return "", errors.New("malformed did: method cannot be empty")
	}
	return didsdk.Method(split[1]), nil
}

// SplitDIDURL splits a DID URL into the DID and its fragment, if any. Path and query components are
// kept with the DID.
func SplitDIDURL(didURL string) (did, fragment string) {
	did, fragment, _ = strings.Cut(didURL, "#")
	return did, fragment
}

// SanitizeLog prevents certain classes of injection attacks before logging
// https://codeql.github.com/codeql-query-help/go/go-log-injection/
func SanitizeLog(log string) string {
	escapedLog := strings.ReplaceAll(log, "\n", "")
	return strings.ReplaceAll(escapedLog, "\r", "")
}

// Is2xxResponse returns true if the given status code is a 2xx response
func Is2xxResponse(statusCode int) bool {
	return statusCode/100 == 2
}

// Is5xxResponse returns true if the given status code is a server error
func Is5xxResponse(statusCode int) bool {
	return statusCode/100 == 5
}
