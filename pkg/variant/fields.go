package variant

import (
	"bytes"
	"regexp"
	"sort"

	"github.com/goccy/go-json"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/tidwall/gjson"

	"github.com/tbd54566975/oid4vci/internal/validation"
	"github.com/tbd54566975/oid4vci/pkg/profile"
)

// Fields is a JSON object held as its members' raw encodings.
type Fields map[string]json.RawMessage

// Has reports whether the member is syntactically present, even if its value is null.
func (f Fields) Has(name string) bool {
	_, ok := f[name]
	return ok
}

// Without returns a copy of the fields minus the named members.
func (f Fields) Without(names ...string) Fields {
	return lo.OmitByKeys(f, names)
}

// Decode returns the members decoded into generic JSON values. Numbers are kept as json.Number so
// that integers beyond float64 precision survive re-encoding.
func (f Fields) Decode() (map[string]any, error) {
	decoded := make(map[string]any, len(f))
	for k, raw := range f {
		var v any
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		if err := dec.Decode(&v); err != nil {
			return nil, errors.Wrapf(err, "decoding field %q", k)
		}
		decoded[k] = v
	}
	return decoded, nil
}

// Split parses a JSON object and separates the named envelope members from the rest. The raw
// bytes of every member are retained so re-serialization does not alter numbers or strings.
func Split(data []byte, envelope ...string) (env Fields, rest Fields, err error) {
	if !gjson.ValidBytes(data) {
		return nil, nil, errors.New("invalid json")
	}
	parsed := gjson.ParseBytes(data)
	if !parsed.IsObject() {
		return nil, nil, errors.New("expected a json object")
	}
	env, rest = make(Fields), make(Fields)
	parsed.ForEach(func(key, value gjson.Result) bool {
		raw := json.RawMessage(value.Raw)
		if lo.Contains(envelope, key.String()) {
			env[key.String()] = raw
		} else {
			rest[key.String()] = raw
		}
		return true
	})
	return env, rest, nil
}

// Join marshals the union of the given field sets as one JSON object.
func Join(sets ...Fields) ([]byte, error) {
	joined := make(map[string]json.RawMessage)
	for _, set := range sets {
		for k, v := range set {
			joined[k] = v
		}
	}
	return json.Marshal(joined)
}

// EncodeProfile marshals a profile payload into its members.
func EncodeProfile(v any) (Fields, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "marshalling profile")
	}
	_, fields, err := Split(data)
	if err != nil {
		return nil, errors.Wrap(err, "splitting profile")
	}
	return fields, nil
}

var mapstructurePath = regexp.MustCompile(`^'([^']*)'`)

// DecodeProfile decodes profile members into target, a pointer to a profile struct, and
// validates the result. Failures are reported as *ProfileMismatchError with the field path.
func DecodeProfile(format profile.Format, fields Fields, target any) error {
	generic, err := fields.Decode()
	if err != nil {
		return &ProfileMismatchError{Format: format, Reason: err.Error()}
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  target,
		TagName: "json",
		Squash:  true,
	})
	if err != nil {
		return errors.Wrap(err, "creating profile decoder")
	}
	if err = decoder.Decode(generic); err != nil {
		return mismatchFromDecodeError(format, err)
	}

	if err = validation.Struct(target); err != nil {
		var vErr *validation.Error
		if errors.As(err, &vErr) {
			return &ProfileMismatchError{Format: format, Path: vErr.Path(), Reason: vErr.Fields[0].Error}
		}
		return errors.Wrap(err, "validating profile")
	}
	return nil
}

func mismatchFromDecodeError(format profile.Format, err error) error {
	var mErr *mapstructure.Error
	if !errors.As(err, &mErr) || len(mErr.Errors) == 0 {
		return &ProfileMismatchError{Format: format, Reason: err.Error()}
	}
	// sort so that multiple failures are reported deterministically
	msgs := append([]string(nil), mErr.Errors...)
	sort.Strings(msgs)
	mismatch := &ProfileMismatchError{Format: format, Reason: msgs[0]}
	if m := mapstructurePath.FindStringSubmatch(msgs[0]); m != nil {
		mismatch.Path = m[1]
	}
	return mismatch
}
