package remote

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// WordPress plugins are inconsistent about scalar encoding: the same field
// arrives as 1, "1", true or null depending on the endpoint. The loose types
// below accept every variant seen in the wild.

// looseString accepts a JSON string or number.
type looseString string

func (s *looseString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*s = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = looseString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("looseString: %w", err)
	}
	*s = looseString(n.String())
	return nil
}

// looseInt accepts a JSON number, numeric string or boolean.
type looseInt int64

func (i *looseInt) UnmarshalJSON(b []byte) error {
	raw, err := scalar(b)
	if err != nil {
		return fmt.Errorf("looseInt: %w", err)
	}
	switch raw {
	case "", "null":
		*i = 0
	case "true":
		*i = 1
	case "false":
		*i = 0
	default:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("looseInt: %q: %w", raw, err)
		}
		*i = looseInt(f)
	}
	return nil
}

// looseBool accepts true/false, 1/0 and their string forms.
type looseBool bool

func (v *looseBool) UnmarshalJSON(b []byte) error {
	raw, err := scalar(b)
	if err != nil {
		return fmt.Errorf("looseBool: %w", err)
	}
	switch strings.ToLower(raw) {
	case "1", "true", "yes":
		*v = true
	case "", "0", "false", "no", "null":
		*v = false
	default:
		return fmt.Errorf("looseBool: unexpected %q", raw)
	}
	return nil
}

// looseFloat accepts a JSON number or numeric string; empty means zero.
type looseFloat float64

func (f *looseFloat) UnmarshalJSON(b []byte) error {
	raw, err := scalar(b)
	if err != nil {
		return fmt.Errorf("looseFloat: %w", err)
	}
	if raw == "" || raw == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
	if err != nil {
		return fmt.Errorf("looseFloat: %q: %w", raw, err)
	}
	*f = looseFloat(n)
	return nil
}

// scalar returns the textual form of a JSON scalar, unquoting strings.
func scalar(b []byte) (string, error) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return "", nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return "", err
		}
		return strings.TrimSpace(s), nil
	}
	if b[0] == '{' || b[0] == '[' {
		return "", fmt.Errorf("expected scalar, got %s", b[:1])
	}
	return string(b), nil
}
