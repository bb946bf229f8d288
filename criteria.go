package docstore

import (
	"regexp"
	"strings"

	"github.com/autom8ter/docstore/errors"
	"github.com/autom8ter/docstore/util"
	"github.com/samber/lo"
	"github.com/spf13/cast"
)

// Condition is a single native predicate against a document. Group conditions
// (OpAnd/OpOr) carry sub criteria instead of a field reference.
type Condition struct {
	Field  string      `json:"field,omitempty"`
	Op     Operator    `json:"op"`
	Value  any         `json:"value,omitempty"`
	Groups []*Criteria `json:"groups,omitempty"`

	pattern *regexp.Regexp
}

// NewCondition returns a field condition
func NewCondition(field string, op Operator, value any) Condition {
	return Condition{Field: field, Op: op, Value: value}
}

// NewRegexCondition compiles the pattern and returns a regex condition.
// Malformed patterns fail here rather than at match time.
func NewRegexCondition(field string, pattern string) (Condition, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return Condition{}, errors.Wrap(err, errors.Validation, "invalid regex pattern for field '%s'", field)
	}
	return Condition{Field: field, Op: OpRegex, Value: pattern, pattern: re}, nil
}

// NewGroupCondition returns a logical group condition combining the given criteria
func NewGroupCondition(op Operator, groups ...*Criteria) Condition {
	return Condition{Op: op, Groups: groups}
}

// Criteria is the native query representation: an ordered list of conditions,
// all of which a document must satisfy (an implicit logical AND).
type Criteria struct {
	conditions []Condition
}

// NewCriteria returns an empty Criteria; it matches every document
func NewCriteria(conditions ...Condition) *Criteria {
	return &Criteria{conditions: conditions}
}

// Append appends conditions in the order given
func (c *Criteria) Append(conditions ...Condition) *Criteria {
	c.conditions = append(c.conditions, conditions...)
	return c
}

// Merge appends the other criteria's conditions, preserving their order
func (c *Criteria) Merge(other *Criteria) *Criteria {
	if other == nil {
		return c
	}
	c.conditions = append(c.conditions, other.conditions...)
	return c
}

// Conditions returns the conditions in the order they were appended
func (c *Criteria) Conditions() []Condition {
	conditions := make([]Condition, len(c.conditions))
	copy(conditions, c.conditions)
	return conditions
}

// Len returns the number of conditions
func (c *Criteria) Len() int {
	return len(c.conditions)
}

// Matches evaluates the criteria against the document
func (c *Criteria) Matches(d *Document) (bool, error) {
	for _, cond := range c.conditions {
		pass, err := cond.matches(d)
		if err != nil {
			return false, err
		}
		if !pass {
			return false, nil
		}
	}
	return true, nil
}

func (cond Condition) matches(d *Document) (bool, error) {
	switch cond.Op {
	case OpEq:
		return equalValues(d.Get(cond.Field), cond.Value), nil
	case OpNeq:
		return !equalValues(d.Get(cond.Field), cond.Value), nil
	case OpExists:
		return d.Exists(cond.Field) == cast.ToBool(cond.Value), nil
	case OpLt:
		return compareValues(d.Get(cond.Field), cond.Value) < 0, nil
	case OpGt:
		return compareValues(d.Get(cond.Field), cond.Value) > 0, nil
	case OpLte:
		return compareValues(d.Get(cond.Field), cond.Value) <= 0, nil
	case OpGte:
		return compareValues(d.Get(cond.Field), cond.Value) >= 0, nil
	case OpRegex:
		pattern := cond.pattern
		if pattern == nil {
			var err error
			pattern, err = regexp.Compile(cast.ToString(cond.Value))
			if err != nil {
				return false, errors.Wrap(err, errors.Validation, "invalid regex pattern for field '%s'", cond.Field)
			}
		}
		return pattern.MatchString(cast.ToString(d.Get(cond.Field))), nil
	case OpIn:
		values := cast.ToSlice(cond.Value)
		docVal := d.Get(cond.Field)
		return lo.ContainsBy(values, func(v any) bool {
			return equalValues(docVal, v)
		}), nil
	case OpAnd:
		for _, group := range cond.Groups {
			pass, err := group.Matches(d)
			if err != nil {
				return false, err
			}
			if !pass {
				return false, nil
			}
		}
		return true, nil
	case OpOr:
		for _, group := range cond.Groups {
			pass, err := group.Matches(d)
			if err != nil {
				return false, err
			}
			if pass {
				return true, nil
			}
		}
		return false, nil
	default:
		return false, errors.New(errors.UnsupportedOperator, "invalid operator: '%s'", cond.Op)
	}
}

// equalValues compares a document value against a condition value, coercing the
// condition value to the document value's type
func equalValues(docVal, want any) bool {
	switch dv := docVal.(type) {
	case nil:
		return want == nil
	case bool:
		w, err := cast.ToBoolE(want)
		return err == nil && dv == w
	case float64:
		w, err := cast.ToFloat64E(want)
		return err == nil && dv == w
	case string:
		w, err := cast.ToStringE(want)
		return err == nil && dv == w
	default:
		return util.JSONString(docVal) == util.JSONString(want)
	}
}

// compareValues orders a document value against a condition value: -1 if the document
// value is lower, 1 if higher, 0 if equal
func compareValues(docVal, want any) int {
	switch dv := docVal.(type) {
	case bool:
		w := cast.ToBool(want)
		switch {
		case dv == w:
			return 0
		case !dv:
			return -1
		default:
			return 1
		}
	case float64:
		w := cast.ToFloat64(want)
		switch {
		case dv < w:
			return -1
		case dv > w:
			return 1
		default:
			return 0
		}
	case string:
		return strings.Compare(dv, cast.ToString(want))
	default:
		return strings.Compare(util.JSONString(docVal), util.JSONString(want))
	}
}

var operatorTokens = map[Operator]string{
	OpEq:     "$eq",
	OpNeq:    "$ne",
	OpExists: "$exists",
	OpLt:     "$lt",
	OpGt:     "$gt",
	OpLte:    "$lte",
	OpGte:    "$gte",
	OpRegex:  "$regex",
	OpIn:     "$in",
	OpAnd:    "$and",
	OpOr:     "$or",
}

func (cond Condition) render() map[string]any {
	token, ok := operatorTokens[cond.Op]
	if !ok {
		token = "$" + string(cond.Op)
	}
	if cond.Op == OpAnd || cond.Op == OpOr {
		return map[string]any{
			token: lo.Map(cond.Groups, func(group *Criteria, _ int) any {
				return group.renderValue()
			}),
		}
	}
	return map[string]any{
		cond.Field: map[string]any{token: cond.Value},
	}
}

func (c *Criteria) renderValue() any {
	switch len(c.conditions) {
	case 0:
		return map[string]any{}
	case 1:
		return c.conditions[0].render()
	default:
		return map[string]any{
			"$and": lo.Map(c.conditions, func(cond Condition, _ int) any {
				return cond.render()
			}),
		}
	}
}

// Document renders the criteria as a json document for diagnostics and logging
func (c *Criteria) Document() *Document {
	doc, err := NewDocumentFrom(c.renderValue())
	if err != nil {
		return NewDocument()
	}
	return doc
}

// String returns the criteria as a json string
func (c *Criteria) String() string {
	return c.Document().String()
}

// MarshalJSON satisfies the json Marshaler interface
func (c *Criteria) MarshalJSON() ([]byte, error) {
	return c.Document().Bytes(), nil
}
