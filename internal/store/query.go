package store

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/bingen/internal/ir"
)

// Predicate filters cached compilations.
//
// This is a sealed interface - only types in this package implement it.
// Predicates compile to parameterized SQL; values are never interpolated.
type Predicate interface {
	predicateNode()
}

// Equals matches rows whose column equals a literal value.
type Equals struct {
	Field string     // one of FilterFields
	Value ir.IRValue // IRString, IRInt or IRBool
}

func (Equals) predicateNode() {}

// And matches rows satisfying every predicate. Empty means always true.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// FilterFields lists the compilation columns a predicate may reference.
var FilterFields = []string{"id", "top", "package", "program_hash", "decl_count", "func_count"}

// Where builds an And of Equals from field/value pairs, skipping empty
// values.
func Where(pairs ...string) Predicate {
	if len(pairs)%2 != 0 {
		panic("store.Where: odd number of arguments")
	}
	var and And
	for i := 0; i < len(pairs); i += 2 {
		if pairs[i+1] == "" {
			continue
		}
		and.Predicates = append(and.Predicates, Equals{Field: pairs[i], Value: ir.IRString(pairs[i+1])})
	}
	return and
}

// compilePredicate compiles p to a WHERE clause fragment and its
// parameters. A nil predicate is always true.
func compilePredicate(p Predicate) (string, []any, error) {
	if p == nil {
		return "1 = 1", nil, nil
	}

	switch pred := p.(type) {
	case Equals:
		return compileEquals(pred)
	case *Equals:
		return compileEquals(*pred)
	case And:
		return compileAnd(pred)
	case *And:
		return compileAnd(*pred)
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

func compileEquals(eq Equals) (string, []any, error) {
	if !slices.Contains(FilterFields, eq.Field) {
		return "", nil, fmt.Errorf("unknown filter field %q", eq.Field)
	}
	param, err := irValueToParam(eq.Value)
	if err != nil {
		return "", nil, fmt.Errorf("field %s: %w", eq.Field, err)
	}
	return eq.Field + " = ?", []any{param}, nil
}

func compileAnd(and And) (string, []any, error) {
	if len(and.Predicates) == 0 {
		return "1 = 1", nil, nil // vacuous truth
	}

	parts := make([]string, 0, len(and.Predicates))
	var params []any
	for _, pred := range and.Predicates {
		sql, ps, err := compilePredicate(pred)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, sql)
		params = append(params, ps...)
	}
	return strings.Join(parts, " AND "), params, nil
}

// irValueToParam converts an IR scalar to a SQL parameter.
func irValueToParam(v ir.IRValue) (any, error) {
	switch val := v.(type) {
	case ir.IRString:
		return string(val), nil
	case ir.IRInt:
		return int64(val), nil
	case ir.IRBool:
		return boolToInt(bool(val)), nil
	case nil:
		return nil, fmt.Errorf("missing value")
	default:
		return nil, fmt.Errorf("%T cannot be used as a SQL parameter", v)
	}
}
