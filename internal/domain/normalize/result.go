// Package normalize converts raw source scalars into canonical typed values.
//
// Every conversion returns a Result. A Result is never an error: malformed
// input yields an invalid Result carrying a ParseDiagnostic, and callers
// resolve it to their documented default with Or or Ptr.
package normalize

import "fmt"

// Kind names the target type of a conversion
type Kind string

const (
	KindString  Kind = "string"
	KindNumber  Kind = "number"
	KindInteger Kind = "integer"
	KindBoolean Kind = "boolean"
	KindDate    Kind = "date"
	KindPhone   Kind = "phone"
	KindPostal  Kind = "postal_code"
)

// ParseDiagnostic describes why a raw value could not be converted
type ParseDiagnostic struct {
	Kind   Kind
	Raw    any
	Reason string
}

func (d *ParseDiagnostic) Error() string {
	return fmt.Sprintf("cannot normalize %v as %s: %s", d.Raw, d.Kind, d.Reason)
}

// Result is the outcome of a single conversion.
// Absent input (NA, blank or an empty-like token) is invalid with a nil Diagnostic.
type Result[T any] struct {
	Value      T
	Valid      bool
	Diagnostic *ParseDiagnostic
}

// Or returns the value when valid, def otherwise
func (r Result[T]) Or(def T) T {
	if r.Valid {
		return r.Value
	}
	return def
}

// Ptr returns a pointer to the value when valid, nil otherwise
func (r Result[T]) Ptr() *T {
	if !r.Valid {
		return nil
	}
	v := r.Value
	return &v
}

// Absent reports whether the input carried no value at all
func (r Result[T]) Absent() bool {
	return !r.Valid && r.Diagnostic == nil
}

func valid[T any](v T) Result[T] {
	return Result[T]{Value: v, Valid: true}
}

func absent[T any]() Result[T] {
	return Result[T]{}
}

func invalid[T any](kind Kind, raw any, reason string) Result[T] {
	return Result[T]{Diagnostic: &ParseDiagnostic{Kind: kind, Raw: raw, Reason: reason}}
}
