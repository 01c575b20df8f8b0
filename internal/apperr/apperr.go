// Package apperr defines the error kinds surfaced by the request pipeline
// and maps them onto caller-facing categories.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind identifies a class of failure.
type Kind string

const (
	KindInvalidSymbol        Kind = "InvalidSymbol"
	KindUnsupportedPeriod    Kind = "UnsupportedPeriod"
	KindNoData               Kind = "NoData"
	KindNoRecentTradingDay   Kind = "NoRecentTradingDay"
	KindNotATradingDay       Kind = "NotATradingDay"
	KindEmptySchedule        Kind = "EmptySchedule"
	KindIndicatorComputation Kind = "IndicatorComputation"
	KindUpstreamProvider     Kind = "UpstreamProvider"
	KindCacheUnavailable     Kind = "CacheUnavailable"
)

// Category groups kinds by who is at fault.
type Category int

const (
	CategoryInternal Category = iota
	CategoryBadInput
	CategoryNotFound
	CategoryUpstream
)

func (c Category) String() string {
	switch c {
	case CategoryBadInput:
		return "bad_input"
	case CategoryNotFound:
		return "not_found"
	case CategoryUpstream:
		return "upstream"
	default:
		return "internal"
	}
}

// HTTPStatus is the status code a server should answer with for c.
func (c Category) HTTPStatus() int {
	switch c {
	case CategoryBadInput:
		return http.StatusBadRequest
	case CategoryNotFound:
		return http.StatusNotFound
	case CategoryUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Error is a classified failure. Two errors match under errors.Is when
// their kinds are equal.
type Error struct {
	Kind    Kind
	Message string
	// BadInput marks an IndicatorComputation failure caused by the caller
	// (unknown indicator, non-positive parameter) rather than by the math.
	BadInput bool
	Err      error
}

func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports kind equality so sentinels like ErrNoData match any *Error
// of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Category returns the caller-facing category of e.
func (e *Error) Category() Category {
	switch e.Kind {
	case KindInvalidSymbol, KindUnsupportedPeriod:
		return CategoryBadInput
	case KindIndicatorComputation:
		if e.BadInput {
			return CategoryBadInput
		}
		return CategoryInternal
	case KindNoData:
		return CategoryNotFound
	case KindUpstreamProvider:
		return CategoryUpstream
	case KindCacheUnavailable:
		// The series cache is our own dependency, not the market-data
		// provider's.
		return CategoryInternal
	default:
		return CategoryInternal
	}
}

// Sentinels for errors.Is comparisons.
var (
	ErrInvalidSymbol        = &Error{Kind: KindInvalidSymbol}
	ErrUnsupportedPeriod    = &Error{Kind: KindUnsupportedPeriod}
	ErrNoData               = &Error{Kind: KindNoData}
	ErrNoRecentTradingDay   = &Error{Kind: KindNoRecentTradingDay}
	ErrNotATradingDay       = &Error{Kind: KindNotATradingDay}
	ErrEmptySchedule        = &Error{Kind: KindEmptySchedule}
	ErrIndicatorComputation = &Error{Kind: KindIndicatorComputation}
	ErrUpstreamProvider     = &Error{Kind: KindUpstreamProvider}
	ErrCacheUnavailable     = &Error{Kind: KindCacheUnavailable}
)

// New builds a classified error with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies err under kind. A nil err yields nil.
func Wrap(kind Kind, err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// BadParameter builds an IndicatorComputation error caused by caller input.
func BadParameter(format string, args ...any) *Error {
	return &Error{Kind: KindIndicatorComputation, Message: fmt.Sprintf(format, args...), BadInput: true}
}

// As extracts the outermost *Error from err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// CategoryOf classifies any error; unclassified errors are internal.
func CategoryOf(err error) Category {
	if e, ok := As(err); ok {
		return e.Category()
	}
	return CategoryInternal
}

// KindOf returns the kind of err, or "Internal" when unclassified.
func KindOf(err error) string {
	if e, ok := As(err); ok {
		return string(e.Kind)
	}
	return "Internal"
}
