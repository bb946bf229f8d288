package docstore

// Operator is a filter operator. The operator set is closed: the compiler rejects
// anything outside it rather than guessing.
type Operator string

const (
	// OpEq matches documents whose field value equals the given value
	OpEq Operator = "eq"
	// OpNeq matches documents whose field value does not equal the given value
	OpNeq Operator = "neq"
	// OpExists matches documents by field presence; the value is a bool
	OpExists Operator = "exists"
	// OpLt matches documents whose field value is less than the given value
	OpLt Operator = "lt"
	// OpGt matches documents whose field value is greater than the given value
	OpGt Operator = "gt"
	// OpLte matches documents whose field value is less than or equal to the given value
	OpLte Operator = "lte"
	// OpGte matches documents whose field value is greater than or equal to the given value
	OpGte Operator = "gte"
	// OpRegex matches documents whose field value matches the given pattern
	OpRegex Operator = "regex"
	// OpIn matches documents whose field value is contained in the given values
	OpIn Operator = "in"
	// OpSubFilter applies the value, itself a Filter, against the object nested under the field
	OpSubFilter Operator = "subfilter"
	// OpAnd combines sub filters so that all must match
	OpAnd Operator = "and"
	// OpOr combines sub filters so that at least one must match
	OpOr Operator = "or"
)

// Filter is a node in a filter tree. FieldFilter and SubFilter are the only implementations.
type Filter interface {
	isFilter()
}

// FieldFilter applies an operator to a single field. For OpSubFilter the value is a
// Filter evaluated against the object nested under the field; for OpIn the value is a
// slice of candidate values; for OpExists the value is a bool.
type FieldFilter struct {
	Field Field    `json:"field"`
	Op    Operator `json:"op" validate:"required"`
	Value any      `json:"value,omitempty"`
}

func (FieldFilter) isFilter() {}

// SubFilter combines sub filters under a logical operator (OpAnd or OpOr).
// Filters may nest to any depth.
type SubFilter struct {
	Op      Operator `json:"op" validate:"required,oneof='and' 'or'"`
	Filters []Filter `json:"filters" validate:"min=1,required"`
}

func (SubFilter) isFilter() {}

// And combines the given filters so that all must match
func And(filters ...Filter) SubFilter {
	return SubFilter{Op: OpAnd, Filters: filters}
}

// Or combines the given filters so that at least one must match
func Or(filters ...Filter) SubFilter {
	return SubFilter{Op: OpOr, Filters: filters}
}
