package cog

import (
	"errors"
	"fmt"
)

// Error categories. Every error returned by this package unwraps to exactly
// one of these, so callers can classify failures with errors.Is without
// matching on concrete types.
var (
	// ErrFormat indicates malformed bytes in the file itself.
	ErrFormat = errors.New("malformed directory data")

	// ErrUnsupported indicates a well-formed construct this decoder does not handle.
	ErrUnsupported = errors.New("unsupported feature")

	// ErrUsage indicates an API call that is invalid regardless of file contents.
	ErrUsage = errors.New("invalid usage")

	// ErrLimits indicates a size computation that exceeds implementation limits.
	ErrLimits = errors.New("size limits exceeded")

	// ErrRange indicates a numeric value that does not fit the requested width.
	ErrRange = errors.New("value out of range")
)

// UnknownTypeError is returned when an entry carries a tag type code outside
// the known set.
type UnknownTypeError struct {
	Code uint16
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("unknown tag type code %d", e.Code)
}

func (e *UnknownTypeError) Unwrap() error { return ErrUnsupported }

// InconsistentSizesError is returned when buffered data does not match the
// length implied by its type and count.
type InconsistentSizesError struct {
	Type     TagType
	Expected uint64
	Actual   uint64
}

func (e *InconsistentSizesError) Error() string {
	return fmt.Sprintf("inconsistent sizes for %v: expected %d bytes, have %d", e.Type, e.Expected, e.Actual)
}

func (e *InconsistentSizesError) Unwrap() error { return ErrFormat }

// ConversionError is returned when buffered data of one type is read as an
// incompatible Go type.
type ConversionError struct {
	Type TagType
	Want string
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("cannot convert %v data to %s", e.Type, e.Want)
}

func (e *ConversionError) Unwrap() error { return ErrFormat }

// ReferenceTypeError is returned when a directory-reference type is read as
// a plain value. Reference data must be parsed as a nested directory.
type ReferenceTypeError struct {
	Type TagType
}

func (e *ReferenceTypeError) Error() string {
	return fmt.Sprintf("%v entries hold directories, not values", e.Type)
}

func (e *ReferenceTypeError) Unwrap() error { return ErrUsage }

// RangeError is returned when a narrowing conversion would lose bits.
type RangeError struct {
	Type TagType
	Want string
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("%v value does not fit in %s", e.Type, e.Want)
}

func (e *RangeError) Unwrap() error { return ErrRange }

// InvalidAsciiError is returned when ASCII data is not 7-bit NUL-terminated text.
type InvalidAsciiError struct {
	Reason string
}

func (e *InvalidAsciiError) Error() string {
	return "invalid ascii data: " + e.Reason
}

func (e *InvalidAsciiError) Unwrap() error { return ErrFormat }

// RequiredTagError is returned when a directory lacks a tag the caller requires.
type RequiredTagError struct {
	Tag Tag
}

func (e *RequiredTagError) Error() string {
	return fmt.Sprintf("required tag %v not found", e.Tag)
}

func (e *RequiredTagError) Unwrap() error { return ErrFormat }

// UnresolvedTagError is returned when buffered data is required for a tag
// whose data has not been loaded yet.
type UnresolvedTagError struct {
	Tag Tag
}

func (e *UnresolvedTagError) Error() string {
	return fmt.Sprintf("data for tag %v has not been loaded", e.Tag)
}

func (e *UnresolvedTagError) Unwrap() error { return ErrUsage }

// DuplicateTagDataError is returned when loaded data is attached to a tag
// that already holds buffered data.
type DuplicateTagDataError struct {
	Tag Tag
}

func (e *DuplicateTagDataError) Error() string {
	return fmt.Sprintf("data for tag %v already loaded", e.Tag)
}

func (e *DuplicateTagDataError) Unwrap() error { return ErrUsage }

// OverviewNotLoadedError is returned when a chunk lookup targets an overview
// level that has not been loaded.
type OverviewNotLoadedError struct {
	Level int
}

func (e *OverviewNotLoadedError) Error() string {
	return fmt.Sprintf("overview level %d not loaded", e.Level)
}

func (e *OverviewNotLoadedError) Unwrap() error { return ErrUsage }

// CycleError is returned when directory offsets form a cycle.
type CycleError struct {
	Offset uint64
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("cycle in directory offsets at %d", e.Offset)
}

func (e *CycleError) Unwrap() error { return ErrFormat }

// LimitsError is returned when count*width overflows or exceeds what the
// implementation will allocate.
type LimitsError struct {
	Type  TagType
	Count uint64
}

func (e *LimitsError) Error() string {
	return fmt.Sprintf("byte length of %d %v values exceeds limits", e.Count, e.Type)
}

func (e *LimitsError) Unwrap() error { return ErrLimits }
