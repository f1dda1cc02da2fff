package proof

import (
	"bytes"
	"math"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
)

// NumericDates outside years 0001 through 9999 are rejected.
const (
	minTimestamp = -62135596800
	maxTimestamp = 253402300799
)

var ErrTimestampOutOfRange = errors.New("timestamp out of range")

// Timestamp is a JWT NumericDate: whole seconds since the Unix epoch. It is emitted as an integer. When
// decoded it also accepts fractional seconds and RFC 3339 date-time strings.
type Timestamp int64

// NewTimestamp truncates t to whole seconds.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp(t.Unix())
}

func (t Timestamp) Time() time.Time {
	return time.Unix(int64(t), 0).UTC()
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return errors.Wrap(err, "decoding timestamp string")
		}
		parsed, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return errors.Wrapf(err, "parsing timestamp<%s>", s)
		}
		if unix := parsed.Unix(); unix < minTimestamp || unix > maxTimestamp {
			return errors.Wrapf(ErrTimestampOutOfRange, "timestamp<%s>", s)
		}
		*t = NewTimestamp(parsed)
		return nil
	}
	seconds, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return errors.Wrapf(err, "parsing numeric timestamp<%s>", data)
	}
	if math.IsNaN(seconds) || seconds < minTimestamp || seconds >= maxTimestamp+1 {
		return errors.Wrapf(ErrTimestampOutOfRange, "numeric timestamp<%s>", data)
	}
	*t = Timestamp(math.Floor(seconds))
	return nil
}
