// Package status canonicalizes the task completion flag. Clients send it as
// a boolean, a 0/1 number, or a "yes"/"no" string; everything inside the
// server works on the canonical bool, so filters and stats never depend on
// which spelling was stored last. This is the single place where the
// conversion happens.
package status

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/avolkovs/taskdeck/internal/common"
)

// Normalize converts an external completion value to the canonical bool.
// Accepted: true/false, 1/0 (any numeric type produced by JSON decoding),
// "yes"/"no" in any case, and nil (absent -> false). Anything else is a
// validation error.
func Normalize(v any) (bool, error) {
	switch value := v.(type) {
	case nil:
		return false, nil
	case bool:
		return value, nil
	case float64:
		switch value {
		case 1:
			return true, nil
		case 0:
			return false, nil
		}
	case int:
		switch value {
		case 1:
			return true, nil
		case 0:
			return false, nil
		}
	case string:
		switch strings.ToLower(value) {
		case "yes":
			return true, nil
		case "no":
			return false, nil
		}
	}
	return false, fmt.Errorf("%w: completed must be true/false, 1/0 or \"yes\"/\"no\", got %v", common.ErrorValidation, v)
}

// Flag is the JSON boundary type for the completion field. It remembers
// whether the field was present, which partial updates rely on. Marshalling
// always emits the canonical bool.
type Flag struct {
	Set   bool
	Value bool
}

func (f *Flag) UnmarshalJSON(b []byte) error {
	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	v, err := Normalize(raw)
	if err != nil {
		return err
	}
	f.Set = true
	f.Value = v
	return nil
}

func (f Flag) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.Value)
}
