package docstore

import (
	"reflect"

	"github.com/autom8ter/docstore/errors"
	"github.com/samber/lo"
	"github.com/spf13/cast"
)

// FilterCompiler translates filter trees into criteria. Values embedded in the
// output pass through the codec's ToValue.
type FilterCompiler struct {
	codec ObjectCodec
}

// NewFilterCompiler returns a filter compiler backed by the given codec. A nil codec
// falls back to the default codec.
func NewFilterCompiler(codec ObjectCodec) *FilterCompiler {
	if codec == nil {
		codec = NewCodec()
	}
	return &FilterCompiler{codec: codec}
}

// Compile translates the filter into criteria. Compilation is all or nothing: on
// error no criteria is returned.
func (fc *FilterCompiler) Compile(f Filter) (*Criteria, error) {
	criteria := NewCriteria()
	if err := fc.compile(f, "", criteria); err != nil {
		return nil, err
	}
	return criteria, nil
}

func (fc *FilterCompiler) compile(f Filter, prefix string, into *Criteria) error {
	switch f := f.(type) {
	case FieldFilter:
		return fc.compileField(f, prefix, into)
	case *FieldFilter:
		return fc.compileField(*f, prefix, into)
	case SubFilter:
		return fc.compileSub(f, prefix, into)
	case *SubFilter:
		return fc.compileSub(*f, prefix, into)
	default:
		return errors.New(errors.UnknownFilter, "unknown filter variant: %T", f)
	}
}

func (fc *FilterCompiler) compileField(f FieldFilter, prefix string, into *Criteria) error {
	if f.Field.Name == "" {
		return errors.New(errors.Validation, "filter: empty field name")
	}
	path := prefix + f.Field.Name
	switch f.Op {
	case OpEq, OpNeq, OpLt, OpGt, OpLte, OpGte:
		if err := f.Field.Validate(f.Value); err != nil {
			return err
		}
		value, err := fc.codec.ToValue(f.Value)
		if err != nil {
			return err
		}
		into.Append(NewCondition(path, f.Op, value))
		return nil
	case OpExists:
		want, err := cast.ToBoolE(f.Value)
		if err != nil {
			return errors.New(errors.Validation, "filter: exists on '%s' takes a bool value, got %T", path, f.Value)
		}
		into.Append(NewCondition(path, OpExists, want))
		return nil
	case OpRegex:
		pattern, ok := f.Value.(string)
		if !ok {
			return errors.New(errors.Validation, "filter: regex on '%s' takes a string pattern, got %T", path, f.Value)
		}
		cond, err := NewRegexCondition(path, pattern)
		if err != nil {
			return err
		}
		into.Append(cond)
		return nil
	case OpIn:
		rv := reflect.ValueOf(f.Value)
		if f.Value == nil || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
			return errors.New(errors.Validation, "filter: in on '%s' takes a list of values, got %T", path, f.Value)
		}
		normalized := make([]any, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			element := rv.Index(i).Interface()
			if err := f.Field.Validate(element); err != nil {
				return err
			}
			value, err := fc.codec.ToValue(element)
			if err != nil {
				return err
			}
			normalized = append(normalized, value)
		}
		into.Append(NewCondition(path, OpIn, normalized))
		return nil
	case OpSubFilter:
		sub, ok := f.Value.(Filter)
		if !ok {
			return errors.New(errors.Validation, "filter: subfilter on '%s' takes a filter value, got %T", path, f.Value)
		}
		return fc.compile(sub, path+".", into)
	default:
		return errors.New(errors.UnsupportedOperator, "unsupported operator: '%s'", f.Op)
	}
}

func (fc *FilterCompiler) compileSub(f SubFilter, prefix string, into *Criteria) error {
	if f.Op != OpAnd && f.Op != OpOr {
		return errors.New(errors.UnsupportedOperator, "unsupported logical operator: '%s'", f.Op)
	}
	if len(f.Filters) == 0 {
		return errors.New(errors.Validation, "filter: empty '%s' group", f.Op)
	}
	groups := make([]*Criteria, 0, len(f.Filters))
	for _, child := range f.Filters {
		fragment := NewCriteria()
		if err := fc.compile(child, prefix, fragment); err != nil {
			return err
		}
		groups = append(groups, fragment)
	}
	into.Append(NewGroupCondition(f.Op, groups...))
	return nil
}

// QueryCompiler compiles query descriptors into executable queries
type QueryCompiler struct {
	filters *FilterCompiler
}

// NewQueryCompiler returns a query compiler backed by the given codec. A nil codec
// falls back to the default codec.
func NewQueryCompiler(codec ObjectCodec) *QueryCompiler {
	return &QueryCompiler{filters: NewFilterCompiler(codec)}
}

// Compile validates and compiles the query. Filters compile in the order they were
// added into a single criteria. A non-empty projection always carries the reserved
// identifier and class fields so results stay addressable and decodable.
func (qc *QueryCompiler) Compile(q *Query) (*ExecutableQuery, error) {
	if q == nil {
		q = NewQuery()
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}
	criteria := NewCriteria()
	for _, f := range q.Filters() {
		fragment := NewCriteria()
		if err := qc.filters.compile(f, "", fragment); err != nil {
			return nil, err
		}
		criteria.Merge(fragment)
	}
	var projection []string
	if selects := q.Selects(); len(selects) > 0 {
		projection = lo.Uniq(append(selects, DocumentIDField, ClassField))
	}
	return &ExecutableQuery{
		Criteria:   criteria,
		Projection: projection,
		Sort:       q.SortSpecs(),
		Skip:       q.GetSkip(),
		Limit:      q.GetLimit(),
	}, nil
}
