package authorization

import (
	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/tbd54566975/oid4vci/pkg/profile"
	"github.com/tbd54566975/oid4vci/pkg/variant"
)

// TypeOpenIDCredential is the authorization details type requesting credential issuance.
const TypeOpenIDCredential = "openid_credential"

var ErrInvalidType = errors.New("authorization detail type must be " + TypeOpenIDCredential)

// Object is the profile-bearing part of an authorization detail.
type Object = variant.Object[profile.AuthorizationDetail, profile.AuthorizationDetailByID]

// Detail is an openid_credential entry of authorization_details. It is addressed either by format or by
// credential_configuration_id.
type Detail struct {
	Object

	// Locations are the credential issuers the detail is meant for, when the authorization server is
	// not the issuer itself.
	Locations []string
}

// NewWithFormat builds a format-addressed detail.
func NewWithFormat(payload profile.AuthorizationDetail, locations ...string) Detail {
	return Detail{Object: variant.AuthorizationDetails.WithFormat(payload), Locations: locations}
}

// NewWithID builds a detail addressed by a credential configuration whose profile is known.
func NewWithID(id string, payload profile.AuthorizationDetailByID, locations ...string) Detail {
	return Detail{Object: variant.AuthorizationDetails.WithID(id, payload), Locations: locations}
}

// NewUnresolved builds a detail addressed by a credential configuration whose profile is not known yet.
func NewUnresolved(id string, fields map[string]any, locations ...string) (Detail, error) {
	obj, err := variant.AuthorizationDetails.Unresolved(id, fields)
	if err != nil {
		return Detail{}, err
	}
	return Detail{Object: obj, Locations: locations}, nil
}

// Resolve types an unresolved detail against the issuer's credential configurations.
func (d Detail) Resolve(configurations map[string]profile.Configuration) (Detail, error) {
	obj, err := variant.AuthorizationDetails.Resolve(d.Object, configurations)
	if err != nil {
		return Detail{}, err
	}
	return Detail{Object: obj, Locations: d.Locations}, nil
}

func (d Detail) MarshalJSON() ([]byte, error) {
	env := variant.Fields{}
	var err error
	if env["type"], err = json.Marshal(TypeOpenIDCredential); err != nil {
		return nil, err
	}
	if len(d.Locations) > 0 {
		if env["locations"], err = json.Marshal(d.Locations); err != nil {
			return nil, err
		}
	}
	return variant.AuthorizationDetails.Marshal(d.Object, env)
}

func (d *Detail) UnmarshalJSON(data []byte) error {
	env, obj, err := variant.AuthorizationDetails.Parse(data)
	if err != nil {
		return err
	}

	var detailType string
	if !env.Has("type") {
		return errors.Wrap(ErrInvalidType, "type is required")
	}
	if err = json.Unmarshal(env["type"], &detailType); err != nil || detailType != TypeOpenIDCredential {
		return errors.Wrapf(ErrInvalidType, "got %s", env["type"])
	}

	var locations []string
	if env.Has("locations") {
		if err = json.Unmarshal(env["locations"], &locations); err != nil {
			return errors.Wrap(err, "locations must be an array of strings")
		}
	}

	*d = Detail{Object: obj, Locations: locations}
	return nil
}

// Details is the value of the authorization_details request parameter.
type Details []Detail

// Resolve resolves every identifier-addressed detail. Format-addressed details are kept as they are.
func (ds Details) Resolve(configurations map[string]profile.Configuration) (Details, error) {
	resolved := make(Details, 0, len(ds))
	for i, d := range ds {
		if d.Kind() == variant.KindWithFormat {
			resolved = append(resolved, d)
			continue
		}
		r, err := d.Resolve(configurations)
		if err != nil {
			return nil, errors.Wrapf(err, "resolving authorization detail %d", i)
		}
		resolved = append(resolved, r)
	}
	return resolved, nil
}

// ForLocation returns the details meant for the given credential issuer. Details without locations apply
// to every issuer.
func (ds Details) ForLocation(issuer string) Details {
	return lo.Filter(ds, func(d Detail, _ int) bool {
		return len(d.Locations) == 0 || lo.Contains(d.Locations, issuer)
	})
}
