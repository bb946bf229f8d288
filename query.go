package docstore

import (
	"github.com/autom8ter/docstore/errors"
	"github.com/autom8ter/docstore/util"
	"github.com/samber/lo"
)

// Direction is a sort direction
type Direction string

const (
	// DirectionAsc sorts in ascending order
	DirectionAsc Direction = "asc"
	// DirectionDesc sorts in descending order
	DirectionDesc Direction = "desc"
)

// SortSpec orders results by a single field
type SortSpec struct {
	// Field is the field to sort on
	Field string `json:"field" validate:"required"`
	// Direction is the sort direction
	Direction Direction `json:"direction" validate:"oneof='desc' 'asc'"`
}

// Query describes a filtered, projected, sorted, paginated read against a collection.
// Filters and sort specs are stored most recently added first; the accessors reinstate
// the order in which they were added.
type Query struct {
	filters []Filter
	sorts   []SortSpec
	selects []string
	skip    int
	limit   int
}

// NewQuery returns an empty query; it matches every document in a collection
func NewQuery() *Query {
	return &Query{}
}

// Where pushes the filter(s) onto the query. All filters must match (a logical AND).
func (q *Query) Where(filters ...Filter) *Query {
	for _, f := range filters {
		q.filters = append([]Filter{f}, q.filters...)
	}
	return q
}

// OrderBy pushes a sort spec onto the query. The first spec added is the primary sort
// key; later specs break ties in the order they were added. An empty direction
// defaults to ascending.
func (q *Query) OrderBy(field string, direction Direction) *Query {
	if direction == "" {
		direction = DirectionAsc
	}
	q.sorts = append([]SortSpec{{Field: field, Direction: direction}}, q.sorts...)
	return q
}

// Select restricts returned documents to the given fields. Dot notation addresses
// nested fields. No Select calls means every field is returned.
func (q *Query) Select(fields ...string) *Query {
	q.selects = append(q.selects, fields...)
	return q
}

// Skip discards the first n matching documents. Zero means no offset.
func (q *Query) Skip(n int) *Query {
	q.skip = n
	return q
}

// Limit caps the number of returned documents. Zero means unbounded.
func (q *Query) Limit(n int) *Query {
	q.limit = n
	return q
}

// Filters returns the filters in the order they were added
func (q *Query) Filters() []Filter {
	filters := make([]Filter, len(q.filters))
	copy(filters, q.filters)
	return lo.Reverse(filters)
}

// SortSpecs returns the sort specs in the order they were added
func (q *Query) SortSpecs() []SortSpec {
	sorts := make([]SortSpec, len(q.sorts))
	copy(sorts, q.sorts)
	return lo.Reverse(sorts)
}

// Selects returns the projected fields in the order they were first added
func (q *Query) Selects() []string {
	return lo.Uniq(q.selects)
}

// GetSkip returns the number of matching documents to discard
func (q *Query) GetSkip() int {
	return q.skip
}

// GetLimit returns the maximum number of documents to return
func (q *Query) GetLimit() int {
	return q.limit
}

// queryState is the validated shape of a query
type queryState struct {
	Filters []Filter   `json:"filters"`
	Selects []string   `json:"selects" validate:"dive,required"`
	Sorts   []SortSpec `json:"sorts" validate:"dive"`
	Skip    int        `json:"skip" validate:"min=0"`
	Limit   int        `json:"limit" validate:"min=0"`
}

// Validate validates the query and returns a validation error if one exists
func (q *Query) Validate() error {
	for _, f := range q.filters {
		if f == nil {
			return errors.New(errors.Validation, "query: nil filter")
		}
	}
	return util.ValidateStruct(&queryState{
		Filters: q.filters,
		Selects: q.selects,
		Sorts:   q.sorts,
		Skip:    q.skip,
		Limit:   q.limit,
	})
}

// String returns the query as a json string for diagnostics
func (q *Query) String() string {
	return util.JSONString(&queryState{
		Filters: q.Filters(),
		Selects: q.Selects(),
		Sorts:   q.SortSpecs(),
		Skip:    q.skip,
		Limit:   q.limit,
	})
}

// ExecutableQuery is a compiled query ready to run against a store
type ExecutableQuery struct {
	// Criteria is the compiled native filter
	Criteria *Criteria `json:"criteria"`
	// Projection is the set of fields the store should return; empty means all
	Projection []string `json:"projection,omitempty"`
	// Sort orders results; the first spec is the primary key, later specs break ties
	Sort []SortSpec `json:"sort,omitempty"`
	// Skip discards the first n results when > 0
	Skip int `json:"skip,omitempty"`
	// Limit caps the result count when > 0
	Limit int `json:"limit,omitempty"`
}
