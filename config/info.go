package config

import (
	"sync"
)

const (
	ServiceName    = "oid4vci"
	ServiceVersion = "0.1.0"
)

var (
	si   *serviceInfo
	once sync.Once
)

// getServiceInfo provides serviceInfo as a singleton
func getServiceInfo() *serviceInfo {
	once.Do(func() {
		si = &serviceInfo{
			name: ServiceName,
			description: "Client tooling for OpenID for Verifiable Credential Issuance: classifies protocol messages" +
				" and verifies proofs of possession.",
			version: ServiceVersion,
		}
	})

	return si
}

// serviceInfo is intended to be a read-only singleton object for static service info
type serviceInfo struct {
	name        string
	description string
	version     string
}

func Name() string {
	return getServiceInfo().name
}

func Description() string {
	return getServiceInfo().description
}

func Version() string {
	return getServiceInfo().version
}
