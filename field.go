package docstore

import (
	"github.com/autom8ter/docstore/errors"
	"github.com/spf13/cast"
)

// Kind is the declared value type of a document field
type Kind string

const (
	// KindAny accepts values of any type
	KindAny Kind = "any"
	// KindString accepts string values
	KindString Kind = "string"
	// KindInt accepts integer values
	KindInt Kind = "int"
	// KindFloat accepts floating point and integer values
	KindFloat Kind = "float"
	// KindBool accepts boolean values
	KindBool Kind = "bool"
	// KindTime accepts time.Time values and RFC3339 strings
	KindTime Kind = "time"
)

// Field is a typed reference to a document field. Name supports dot notation for nested fields.
type Field struct {
	Name string `json:"name" validate:"required"`
	Kind Kind   `json:"kind"`
}

// F returns a Field with the given name and kind
func F(name string, kind Kind) Field {
	return Field{Name: name, Kind: kind}
}

// Validate returns a Validation error if the value is incompatible with the field's
// kind. Nil values are always compatible: they address json null.
func (f Field) Validate(value any) error {
	if value == nil {
		return nil
	}
	if f.Kind == "" || f.Kind == KindAny {
		return nil
	}
	switch f.Kind {
	case KindString:
		if _, ok := value.(string); ok {
			return nil
		}
	case KindBool:
		if _, ok := value.(bool); ok {
			return nil
		}
	case KindInt:
		switch value.(type) {
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
			return nil
		}
	case KindFloat:
		switch value.(type) {
		case float32, float64, int, int8, int16, int32, int64:
			return nil
		}
	case KindTime:
		if _, err := cast.ToTimeE(value); err == nil {
			return nil
		}
	default:
		return errors.New(errors.Validation, "field '%s': unknown kind '%s'", f.Name, f.Kind)
	}
	return errors.New(errors.Validation, "field '%s': value %v is not a %s", f.Name, value, f.Kind)
}
