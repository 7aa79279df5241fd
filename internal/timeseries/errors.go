package timeseries

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies why an aggregation failed.
type Kind int

const (
	KindNotFound Kind = iota + 1
	KindHeaderMalformed
	KindMissingColumn
	KindColumnMismatch
	KindNonNumericValue
	KindInvalidDate
	KindEmptyResult
	KindReadFailed
)

var kindNames = map[Kind]string{
	KindNotFound:        "not_found",
	KindHeaderMalformed: "header_malformed",
	KindMissingColumn:   "missing_column",
	KindColumnMismatch:  "column_mismatch",
	KindNonNumericValue: "non_numeric_value",
	KindInvalidDate:     "invalid_date",
	KindEmptyResult:     "empty_result",
	KindReadFailed:      "read_failed",
}

// String returns the snake_case name used in logs and API problem documents.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Tier is the coarse two-way split callers see at the boundary.
type Tier int

const (
	TierNotFound Tier = iota + 1
	TierProcessing
)

// Tier reports whether k is a missing input or any other processing fault.
func (k Kind) Tier() Tier {
	if k == KindNotFound {
		return TierNotFound
	}
	return TierProcessing
}

// Sentinel errors usable with errors.Is against any *Error of the same kind.
var (
	ErrNotFound        = &Error{Kind: KindNotFound}
	ErrHeaderMalformed = &Error{Kind: KindHeaderMalformed}
	ErrMissingColumn   = &Error{Kind: KindMissingColumn}
	ErrColumnMismatch  = &Error{Kind: KindColumnMismatch}
	ErrNonNumericValue = &Error{Kind: KindNonNumericValue}
	ErrInvalidDate     = &Error{Kind: KindInvalidDate}
	ErrEmptyResult     = &Error{Kind: KindEmptyResult}
)

// Error is the structured failure returned by the aggregator.
// Line is 1-indexed and zero when the fault is not tied to a line.
type Error struct {
	Kind   Kind
	Path   string
	Line   int
	Token  string
	Detail string
	Err    error
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.Path != "" {
		fmt.Fprintf(&b, " %s", e.Path)
	}
	if e.Line > 0 {
		fmt.Fprintf(&b, " line %d", e.Line)
	}
	if e.Detail != "" {
		fmt.Fprintf(&b, ": %s", e.Detail)
	}
	if e.Token != "" {
		fmt.Fprintf(&b, " (%q)", e.Token)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error by kind so the package sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf extracts the Kind from err, or zero if err is not an aggregation error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// IsNotFound reports whether err means the input file does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func newError(kind Kind, line int, token, detail string) *Error {
	return &Error{Kind: kind, Line: line, Token: token, Detail: detail}
}
