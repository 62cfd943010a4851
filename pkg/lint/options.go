package lint

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"
)

// Settings is the free-form settings map of a rule declaration.
type Settings map[string]any

// GetOption extracts a typed option with a default value.
func GetOption[T any](s Settings, key string, defaultVal T) T {
	if s == nil {
		return defaultVal
	}
	v, ok := s[key]
	if !ok {
		return defaultVal
	}
	if typed, ok := v.(T); ok {
		return typed
	}
	return defaultVal
}

// Int extracts an int option, handling the numeric types YAML and JSON produce.
func (s Settings) Int(key string, defaultVal int) int {
	v, ok := s[key]
	if !ok {
		return defaultVal
	}
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case uint64:
		return int(n)
	case float64:
		return int(n)
	default:
		return defaultVal
	}
}

// String extracts a string option.
func (s Settings) String(key string, defaultVal string) string {
	return GetOption(s, key, defaultVal)
}

// Bool extracts a bool option.
func (s Settings) Bool(key string, defaultVal bool) bool {
	return GetOption(s, key, defaultVal)
}

// StringSlice extracts a string slice option.
func (s Settings) StringSlice(key string, defaultVal []string) []string {
	v, ok := s[key]
	if !ok {
		return defaultVal
	}
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		result := make([]string, 0, len(list))
		for _, item := range list {
			if str, ok := item.(string); ok {
				result = append(result, str)
			}
		}
		return result
	default:
		return defaultVal
	}
}

// DecodeSettings decodes settings into a family-specific struct tagged with
// `mapstructure`. Unknown keys and mistyped values are errors, which the
// loader reports as RuleConfigError.
func DecodeSettings(s Settings, out any) error {
	if len(s) == 0 {
		return nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		ErrorUnused:      true,
		WeaklyTypedInput: false,
		TagName:          "mapstructure",
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(map[string]any(s)); err != nil {
		return fmt.Errorf("settings: %w", err)
	}
	return nil
}
