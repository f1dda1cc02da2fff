package profile

// JWTVCDefinition describes a W3C credential secured as a JWT without JSON-LD processing.
type JWTVCDefinition struct {
	Type              []string `json:"type" validate:"required,min=1"`
	CredentialSubject Claims   `json:"credentialSubject,omitempty"`
}

// SubjectDefinition is a credential definition reduced to its subject claims. It is used by
// identifier-addressed payloads, where the type is implied by the configuration.
type SubjectDefinition struct {
	CredentialSubject Claims `json:"credentialSubject,omitempty"`
}

type JWTVCConfiguration struct {
	CredentialSigningAlgValuesSupported []string        `json:"credential_signing_alg_values_supported,omitempty"`
	CredentialDefinition                JWTVCDefinition `json:"credential_definition"`
	Order                               []string        `json:"order,omitempty"`
}

func (*JWTVCConfiguration) Format() Format { return FormatJWTVC }
func (*JWTVCConfiguration) configuration() {}

func (c *JWTVCConfiguration) DefaultRequest() Request {
	return &JWTVCRequest{
		CredentialDefinition: JWTVCDefinition{Type: append([]string(nil), c.CredentialDefinition.Type...)},
	}
}

type JWTVCAuthorizationDetail struct {
	CredentialDefinition JWTVCDefinition `json:"credential_definition"`
}

func (*JWTVCAuthorizationDetail) Format() Format      { return FormatJWTVC }
func (*JWTVCAuthorizationDetail) authorizationDetail() {}

type JWTVCAuthorizationDetailByID struct {
	CredentialDefinition *SubjectDefinition `json:"credential_definition,omitempty"`
}

func (*JWTVCAuthorizationDetailByID) Format() Format          { return FormatJWTVC }
func (*JWTVCAuthorizationDetailByID) authorizationDetailByID() {}

type JWTVCRequest struct {
	CredentialDefinition JWTVCDefinition `json:"credential_definition"`
}

func (*JWTVCRequest) Format() Format { return FormatJWTVC }
func (*JWTVCRequest) request()       {}

type JWTVCRequestByID struct {
	CredentialDefinition *SubjectDefinition `json:"credential_definition,omitempty"`
}

func (*JWTVCRequestByID) Format() Format { return FormatJWTVC }
func (*JWTVCRequestByID) requestByID()   {}

// JWTVCCredential is a compact JWS carrying a jwt_vc_json credential.
type JWTVCCredential string

func (JWTVCCredential) Format() Format { return FormatJWTVC }
func (JWTVCCredential) credential()    {}
