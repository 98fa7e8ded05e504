package registry

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// Decode copies definition parameters into out, a pointer to a struct.
// Keys match `mapstructure` tags or field names case-insensitively, numbers
// are converted between kinds and durations may be written as strings
// such as "250ms".
func Decode(params map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(params); err != nil {
		return fmt.Errorf("invalid params: %w", err)
	}
	return nil
}
