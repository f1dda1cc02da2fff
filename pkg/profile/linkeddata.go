package profile

// LDDefinition describes a W3C credential that is processed as JSON-LD, whether it is secured
// with a data integrity proof (ldp_vc) or as a JWT (jwt_vc_json-ld).
type LDDefinition struct {
	Context           []any    `json:"@context" validate:"required,min=1"`
	Type              []string `json:"type" validate:"required,min=1"`
	CredentialSubject Claims   `json:"credentialSubject,omitempty"`
}

func (d LDDefinition) clone() LDDefinition {
	return LDDefinition{
		Context: append([]any(nil), d.Context...),
		Type:    append([]string(nil), d.Type...),
	}
}

type LDPConfiguration struct {
	CredentialSigningAlgValuesSupported []string     `json:"credential_signing_alg_values_supported,omitempty"`
	CredentialDefinition                LDDefinition `json:"credential_definition"`
	Order                               []string     `json:"order,omitempty"`
}

func (*LDPConfiguration) Format() Format { return FormatLDP }
func (*LDPConfiguration) configuration() {}

func (c *LDPConfiguration) DefaultRequest() Request {
	return &LDPRequest{CredentialDefinition: c.CredentialDefinition.clone()}
}

type LDPAuthorizationDetail struct {
	CredentialDefinition LDDefinition `json:"credential_definition"`
}

func (*LDPAuthorizationDetail) Format() Format      { return FormatLDP }
func (*LDPAuthorizationDetail) authorizationDetail() {}

type LDPAuthorizationDetailByID struct {
	CredentialDefinition *SubjectDefinition `json:"credential_definition,omitempty"`
}

func (*LDPAuthorizationDetailByID) Format() Format          { return FormatLDP }
func (*LDPAuthorizationDetailByID) authorizationDetailByID() {}

type LDPRequest struct {
	CredentialDefinition LDDefinition `json:"credential_definition"`
}

func (*LDPRequest) Format() Format { return FormatLDP }
func (*LDPRequest) request()       {}

type LDPRequestByID struct {
	CredentialDefinition *SubjectDefinition `json:"credential_definition,omitempty"`
}

func (*LDPRequestByID) Format() Format { return FormatLDP }
func (*LDPRequestByID) requestByID()   {}

// LDPCredential is a JSON-LD credential with an embedded proof.
type LDPCredential map[string]any

func (LDPCredential) Format() Format { return FormatLDP }
func (LDPCredential) credential()    {}

// The jwt_vc_json-ld shapes are identical to ldp_vc on the wire; only the discriminator differs.

type JWTLDConfiguration LDPConfiguration

func (*JWTLDConfiguration) Format() Format { return FormatJWTLD }
func (*JWTLDConfiguration) configuration() {}

func (c *JWTLDConfiguration) DefaultRequest() Request {
	return &JWTLDRequest{CredentialDefinition: c.CredentialDefinition.clone()}
}

type JWTLDAuthorizationDetail LDPAuthorizationDetail

func (*JWTLDAuthorizationDetail) Format() Format      { return FormatJWTLD }
func (*JWTLDAuthorizationDetail) authorizationDetail() {}

type JWTLDAuthorizationDetailByID LDPAuthorizationDetailByID

func (*JWTLDAuthorizationDetailByID) Format() Format          { return FormatJWTLD }
func (*JWTLDAuthorizationDetailByID) authorizationDetailByID() {}

type JWTLDRequest LDPRequest

func (*JWTLDRequest) Format() Format { return FormatJWTLD }
func (*JWTLDRequest) request()       {}

type JWTLDRequestByID LDPRequestByID

func (*JWTLDRequestByID) Format() Format { return FormatJWTLD }
func (*JWTLDRequestByID) requestByID()   {}

// JWTLDCredential is a compact JWS carrying a jwt_vc_json-ld credential.
type JWTLDCredential string

func (JWTLDCredential) Format() Format { return FormatJWTLD }
func (JWTLDCredential) credential()    {}
