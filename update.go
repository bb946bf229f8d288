package docstore

import (
	"github.com/autom8ter/docstore/errors"
)

// UpdateKind is the kind of a single field mutation
type UpdateKind string

const (
	// UpdateSet writes a value to a field
	UpdateSet UpdateKind = "set"
	// UpdateUnset removes a field
	UpdateUnset UpdateKind = "unset"
	// UpdateRename moves a field's value to a new field
	UpdateRename UpdateKind = "rename"
)

// UpdateOp is a single field mutation. For UpdateRename the value holds the new
// field name.
type UpdateOp struct {
	Kind  UpdateKind `json:"kind" validate:"oneof='set' 'unset' 'rename'"`
	Field string     `json:"field" validate:"required"`
	Value any        `json:"value,omitempty"`
}

// Update is an ordered list of field mutations. Stores apply the whole list to each
// matched document as one atomic change.
type Update struct {
	ops []UpdateOp
}

// NewUpdate returns an empty update
func NewUpdate() *Update {
	return &Update{}
}

// Set appends a mutation writing the value to the field
func (u *Update) Set(field string, value any) *Update {
	u.ops = append(u.ops, UpdateOp{Kind: UpdateSet, Field: field, Value: value})
	return u
}

// Unset appends a mutation removing the field
func (u *Update) Unset(field string) *Update {
	u.ops = append(u.ops, UpdateOp{Kind: UpdateUnset, Field: field})
	return u
}

// Rename appends a mutation moving the old field's value to the new field
func (u *Update) Rename(oldField, newField string) *Update {
	u.ops = append(u.ops, UpdateOp{Kind: UpdateRename, Field: oldField, Value: newField})
	return u
}

// Ops returns the mutations in the order they were appended
func (u *Update) Ops() []UpdateOp {
	ops := make([]UpdateOp, len(u.ops))
	copy(ops, u.ops)
	return ops
}

// IsEmpty reports whether the update carries no mutations
func (u *Update) IsEmpty() bool {
	return u == nil || len(u.ops) == 0
}

// Apply applies the mutations in order to a clone of the document and returns the
// clone. The input document is never touched, so a failed op leaves no partial
// change behind.
func (u *Update) Apply(doc *Document) (*Document, error) {
	if doc == nil {
		return nil, errors.New(errors.Validation, "update: nil document")
	}
	updated := doc.Clone()
	for _, op := range u.Ops() {
		switch op.Kind {
		case UpdateSet:
			if err := updated.Set(op.Field, op.Value); err != nil {
				return nil, errors.Wrap(err, errors.Validation, "update: failed to set '%s'", op.Field)
			}
		case UpdateUnset:
			if err := updated.Del(op.Field); err != nil {
				return nil, errors.Wrap(err, errors.Validation, "update: failed to unset '%s'", op.Field)
			}
		case UpdateRename:
			newField, ok := op.Value.(string)
			if !ok || newField == "" {
				return nil, errors.New(errors.Validation, "update: rename of '%s' requires a new field name", op.Field)
			}
			if err := updated.Rename(op.Field, newField); err != nil {
				return nil, errors.Wrap(err, errors.Validation, "update: failed to rename '%s'", op.Field)
			}
		default:
			return nil, errors.New(errors.Validation, "update: unknown op kind '%s'", op.Kind)
		}
	}
	return updated, nil
}
