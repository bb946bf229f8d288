// Package util holds the decoding, validation and encoding helpers shared across
// the module.
package util

import (
	"encoding/binary"
	"encoding/json"
	"time"

	"github.com/autom8ter/docstore/errors"
	"github.com/ghodss/yaml"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cast"
)

// Decode decodes the input into the target based on json tags. Inputs are weakly
// typed: numeric strings decode into numeric fields and so on.
func Decode(input, target any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput:     true,
		Result:               target,
		TagName:              "json",
		IgnoreUntaggedFields: true,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(input)
}

var validate = validator.New()

// ValidateStruct validates the struct's `validate` tags and returns a Validation
// coded error on failure
func ValidateStruct(val any) error {
	if err := validate.Struct(val); err != nil {
		return errors.Wrap(err, errors.Validation, "")
	}
	return nil
}

// JSONString renders the value as a json string, ignoring marshal errors
func JSONString(value any) string {
	bits, _ := json.Marshal(value)
	return string(bits)
}

// YAMLToJSON converts yaml content to json. Content that is already json passes
// through untouched.
func YAMLToJSON(content []byte) ([]byte, error) {
	if json.Valid(content) {
		return content, nil
	}
	return yaml.YAMLToJSON(content)
}

// JSONToYAML converts json content to yaml
func JSONToYAML(content []byte) ([]byte, error) {
	return yaml.JSONToYAML(content)
}

// EncodeIndexValue encodes a single field value so index keys sort bytewise:
// numbers as 8 byte big endian, booleans and strings as their text, times by
// nanosecond timestamp. Values outside those types fall back to their json
// rendering.
func EncodeIndexValue(value any) []byte {
	if value == nil {
		return []byte("")
	}
	switch v := value.(type) {
	case bool:
		return []byte(cast.ToString(v))
	case string:
		return []byte(v)
	case int, int64, int32, float64, float32, uint64, uint32, uint16:
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, cast.ToUint64(v))
		return buf
	case time.Time:
		return EncodeIndexValue(v.UnixNano())
	case time.Duration:
		return EncodeIndexValue(int64(v))
	default:
		return EncodeIndexValue(JSONString(v))
	}
}
