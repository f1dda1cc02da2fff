package variant

import (
	"github.com/goccy/go-json"
	"github.com/pkg/errors"

	"github.com/tbd54566975/oid4vci/pkg/profile"
)

const (
	FieldFormat                    = "format"
	FieldCredentialConfigurationID = "credential_configuration_id"
	FieldCredentialIdentifier      = "credential_identifier"
)

// Kind is the addressing shape of an Object.
type Kind int

const (
	// KindWithFormat objects are addressed by "format" and carry a typed profile payload.
	KindWithFormat Kind = iota + 1
	// KindWithIDUnresolved objects are addressed by identifier and carry opaque profile fields.
	KindWithIDUnresolved
	// KindWithID objects are addressed by identifier and carry a typed profile payload. They are
	// only produced by resolution or programmatic construction, never by parsing.
	KindWithID
)

func (k Kind) String() string {
	switch k {
	case KindWithFormat:
		return "WithFormat"
	case KindWithIDUnresolved:
		return "WithIdAndUnresolvedProfile"
	case KindWithID:
		return "WithId"
	}
	return "Unknown"
}

// Payload is implemented by every profile payload type.
type Payload interface {
	Format() profile.Format
}

// Object is one of the three mutually exclusive shapes of a profile-bearing protocol object.
// F is the format-addressed payload sum type, I the identifier-addressed one. The zero value is
// an empty object that cannot be serialized.
type Object[F, I Payload] struct {
	kind       Kind
	id         string
	withFormat F
	withID     I
	fields     Fields
}

func (o Object[F, I]) Kind() Kind {
	return o.kind
}

// ID returns the identifier of identifier-addressed objects.
func (o Object[F, I]) ID() string {
	return o.id
}

// Format returns the format of the payload, or the empty format while unresolved.
func (o Object[F, I]) Format() profile.Format {
	switch o.kind {
	case KindWithFormat:
		if any(o.withFormat) != nil {
			return o.withFormat.Format()
		}
	case KindWithID:
		if any(o.withID) != nil {
			return o.withID.Format()
		}
	}
	return ""
}

// WithFormat returns the payload of a format-addressed object.
func (o Object[F, I]) WithFormat() (F, bool) {
	return o.withFormat, o.kind == KindWithFormat
}

// WithID returns the payload of a resolved identifier-addressed object.
func (o Object[F, I]) WithID() (I, bool) {
	return o.withID, o.kind == KindWithID
}

// UnresolvedFields returns a copy of the opaque profile fields of an unresolved object.
func (o Object[F, I]) UnresolvedFields() (Fields, bool) {
	if o.kind != KindWithIDUnresolved {
		return nil, false
	}
	return o.fields.Without(), true
}

// IsResolved reports whether the payload is typed.
func (o Object[F, I]) IsResolved() bool {
	return o.kind == KindWithFormat || o.kind == KindWithID
}

// Schema binds variant classification and resolution to one message kind: it names the
// identifier discriminator and selects payload types from the profile catalog.
type Schema[F, I Payload] struct {
	// IDField is the identifier discriminator exclusive with "format".
	IDField string
	// Envelope lists message members that belong to neither the discriminators nor the profile.
	Envelope      []string
	NewWithFormat func(profile.Format) (F, error)
	NewWithID     func(profile.Format) (I, error)
}

// AuthorizationDetails addresses authorization_details entries by credential_configuration_id.
var AuthorizationDetails = Schema[profile.AuthorizationDetail, profile.AuthorizationDetailByID]{
	IDField:       FieldCredentialConfigurationID,
	Envelope:      []string{"type", "locations"},
	NewWithFormat: profile.NewAuthorizationDetail,
	NewWithID:     profile.NewAuthorizationDetailByID,
}

// CredentialRequests addresses credential requests by credential_identifier.
var CredentialRequests = Schema[profile.Request, profile.RequestByID]{
	IDField:       FieldCredentialIdentifier,
	Envelope:      []string{"proof", "proofs", "credential_response_encryption"},
	NewWithFormat: profile.NewRequest,
	NewWithID:     profile.NewRequestByID,
}

// WithFormat builds a format-addressed object.
func (s Schema[F, I]) WithFormat(payload F) Object[F, I] {
	return Object[F, I]{kind: KindWithFormat, withFormat: payload}
}

// WithID builds a resolved identifier-addressed object.
func (s Schema[F, I]) WithID(id string, payload I) Object[F, I] {
	return Object[F, I]{kind: KindWithID, id: id, withID: payload}
}

// Unresolved builds an identifier-addressed object whose profile fields are not yet typed.
func (s Schema[F, I]) Unresolved(id string, fields map[string]any) (Object[F, I], error) {
	if id == "" {
		return Object[F, I]{}, errors.Errorf("%s cannot be empty", s.IDField)
	}
	captured := make(Fields, len(fields))
	for k, v := range fields {
		if k == FieldFormat || k == s.IDField {
			return Object[F, I]{}, &AmbiguousVariantError{Field: k, Discriminator: s.IDField}
		}
		raw, err := json.Marshal(v)
		if err != nil {
			return Object[F, I]{}, errors.Wrapf(err, "encoding field %q", k)
		}
		captured[k] = raw
	}
	return Object[F, I]{kind: KindWithIDUnresolved, id: id, fields: captured}, nil
}

// Classify selects the shape of the profile-bearing members of a message. The envelope must
// already be removed. A "format" member selects the format-addressed shape and forbids the
// identifier member; otherwise the identifier member selects the unresolved shape, whose
// remaining members are captured without validation.
func (s Schema[F, I]) Classify(fields Fields) (Object[F, I], error) {
	var none Object[F, I]
	hasFormat, hasID := fields.Has(FieldFormat), fields.Has(s.IDField)
	switch {
	case hasFormat && hasID:
		return none, &AmbiguousVariantError{Field: s.IDField, Discriminator: FieldFormat}
	case hasFormat:
		var format profile.Format
		if err := json.Unmarshal(fields[FieldFormat], &format); err != nil {
			return none, errors.Wrapf(err, "field %q must be a string", FieldFormat)
		}
		payload, err := s.NewWithFormat(format)
		if err != nil {
			return none, err
		}
		if err = DecodeProfile(format, fields.Without(FieldFormat), payload); err != nil {
			return none, err
		}
		return s.WithFormat(payload), nil
	case hasID:
		var id string
		if err := json.Unmarshal(fields[s.IDField], &id); err != nil {
			return none, errors.Wrapf(err, "field %q must be a string", s.IDField)
		}
		if id == "" {
			return none, errors.Errorf("field %q cannot be empty", s.IDField)
		}
		return Object[F, I]{kind: KindWithIDUnresolved, id: id, fields: fields.Without(s.IDField)}, nil
	}
	return none, errors.Wrapf(ErrMissingDiscriminator, "one of %q or %q must be present", FieldFormat, s.IDField)
}

// Parse splits a JSON message into its envelope and classifies the rest.
func (s Schema[F, I]) Parse(data []byte) (Fields, Object[F, I], error) {
	env, rest, err := Split(data, s.Envelope...)
	if err != nil {
		return nil, Object[F, I]{}, err
	}
	obj, err := s.Classify(rest)
	if err != nil {
		return nil, Object[F, I]{}, err
	}
	return env, obj, nil
}

// Fields serializes an object: the active shape's discriminator plus its profile members.
// The other discriminator is never emitted.
func (s Schema[F, I]) Fields(o Object[F, I]) (Fields, error) {
	var (
		fields Fields
		err    error
	)
	switch o.kind {
	case KindWithFormat:
		if any(o.withFormat) == nil {
			return nil, ErrEmptyVariant
		}
		if fields, err = EncodeProfile(o.withFormat); err != nil {
			return nil, err
		}
		if fields[FieldFormat], err = json.Marshal(o.withFormat.Format()); err != nil {
			return nil, err
		}
	case KindWithID:
		if any(o.withID) == nil {
			return nil, ErrEmptyVariant
		}
		if fields, err = EncodeProfile(o.withID); err != nil {
			return nil, err
		}
		if fields[s.IDField], err = json.Marshal(o.id); err != nil {
			return nil, err
		}
	case KindWithIDUnresolved:
		fields = o.fields.Without()
		if fields[s.IDField], err = json.Marshal(o.id); err != nil {
			return nil, err
		}
	default:
		return nil, ErrEmptyVariant
	}
	return fields, nil
}

// Marshal serializes an object joined with envelope members.
func (s Schema[F, I]) Marshal(o Object[F, I], envelope Fields) ([]byte, error) {
	fields, err := s.Fields(o)
	if err != nil {
		return nil, err
	}
	return Join(envelope, fields)
}

// Resolve types the captured fields of an unresolved object using the configuration found under
// its identifier. A resolved object is returned unchanged.
func (s Schema[F, I]) Resolve(o Object[F, I], configurations map[string]profile.Configuration) (Object[F, I], error) {
	switch o.kind {
	case KindWithID:
		return o, nil
	case KindWithIDUnresolved:
	default:
		return Object[F, I]{}, errors.Wrapf(ErrNotIDAddressed, "resolving %s object", o.kind)
	}

	configuration, ok := configurations[o.id]
	if !ok || configuration == nil {
		return Object[F, I]{}, errors.Wrapf(ErrUnknownConfiguration, "credential configuration<%s>", o.id)
	}
	format := configuration.Format()
	payload, err := s.NewWithID(format)
	if err != nil {
		return Object[F, I]{}, err
	}
	if err = DecodeProfile(format, o.fields, payload); err != nil {
		return Object[F, I]{}, err
	}
	return s.WithID(o.id, payload), nil
}
