package variant

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/tbd54566975/oid4vci/pkg/profile"
)

var (
	ErrAmbiguousVariant     = errors.New("ambiguous variant")
	ErrMissingDiscriminator = errors.New("missing discriminator")
	ErrUnknownFormat        = profile.ErrUnknownFormat
	ErrUnknownConfiguration = errors.New("unknown credential configuration")
	ErrProfileMismatch      = errors.New("profile mismatch")
	ErrNotIDAddressed       = errors.New("object is not addressed by identifier")
	ErrEmptyVariant         = errors.New("empty variant")
)

// AmbiguousVariantError reports a field that must not be present in the shape selected by
// the discriminator that is present.
type AmbiguousVariantError struct {
	// Field is the field that must not be present.
	Field string
	// Discriminator is the field that selected the shape.
	Discriminator string
}

func (e *AmbiguousVariantError) Error() string {
	return fmt.Sprintf("%s: field %q must not be present when %q is set", ErrAmbiguousVariant, e.Field, e.Discriminator)
}

func (e *AmbiguousVariantError) Is(target error) bool {
	return target == ErrAmbiguousVariant
}

// ProfileMismatchError reports profile fields that do not fit the schema of a format.
type ProfileMismatchError struct {
	Format profile.Format
	// Path is the JSON path of the offending field, relative to the object.
	Path   string
	Reason string
}

func (e *ProfileMismatchError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s for format<%s>: %s", ErrProfileMismatch, e.Format, e.Reason)
	}
	return fmt.Sprintf("%s for format<%s> at %q: %s", ErrProfileMismatch, e.Format, e.Path, e.Reason)
}

func (e *ProfileMismatchError) Is(target error) bool {
	return target == ErrProfileMismatch
}
