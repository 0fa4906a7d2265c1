// Package tagerr defines the value-typed error taxonomy shared by every
// decoder. Errors never unwind through parser internals except via an
// explicit return; each constructor wraps github.com/pkg/errors so a caller
// can recover offset/field context with errors.Cause while still matching
// on the concrete type with errors.As.
package tagerr

import (
	"fmt"

	"github.com/pkg/errors"
)

// IOKind enumerates the flavors of Io errors.
type IOKind int

const (
	IOUnknown IOKind = iota
	IONotFound
	IOPermission
	IOTruncated
)

func (k IOKind) String() string {
	switch k {
	case IONotFound:
		return "not-found"
	case IOPermission:
		return "permission"
	case IOTruncated:
		return "truncated"
	default:
		return "unknown"
	}
}

// Io wraps a filesystem-level failure.
type Io struct {
	Kind IOKind
	Path string
	Err  error
}

func (e *Io) Error() string {
	return fmt.Sprintf("io(%s): %s: %v", e.Kind, e.Path, e.Err)
}

func (e *Io) Unwrap() error { return e.Err }

// NewIo wraps err as an Io error of the given kind, attaching path context.
func NewIo(kind IOKind, path string, err error) error {
	return errors.WithStack(&Io{Kind: kind, Path: path, Err: err})
}

// UnsupportedFormat means the magic bytes matched nothing we recognise.
type UnsupportedFormat struct {
	Path string
}

func (e *UnsupportedFormat) Error() string {
	return fmt.Sprintf("unsupported format: %s", e.Path)
}

func NewUnsupportedFormat(path string) error {
	return errors.WithStack(&UnsupportedFormat{Path: path})
}

// NoHeader means the file is the right container but lacks the expected tag
// container (e.g. an MP3 with no ID3v2 and no ID3v1).
type NoHeader struct {
	Format string
}

func (e *NoHeader) Error() string {
	return fmt.Sprintf("%s: no tag header present", e.Format)
}

func NewNoHeader(format string) error {
	return errors.WithStack(&NoHeader{Format: format})
}

// Malformed means a required invariant failed while parsing a mandatory
// structure.
type Malformed struct {
	Format string
	Field  string
	Offset int64
	Reason string
}

func (e *Malformed) Error() string {
	return fmt.Sprintf("%s: malformed %s at offset %d: %s", e.Format, e.Field, e.Offset, e.Reason)
}

func NewMalformed(format, field string, offset int64, reason string) error {
	return errors.WithStack(&Malformed{Format: format, Field: field, Offset: offset, Reason: reason})
}

// UnsupportedVersion means the container was recognised but its version is
// out of the range this library handles (e.g. ID3v2.5).
type UnsupportedVersion struct {
	Format  string
	Version string
}

func (e *UnsupportedVersion) Error() string {
	return fmt.Sprintf("%s: unsupported version %s", e.Format, e.Version)
}

func NewUnsupportedVersion(format, version string) error {
	return errors.WithStack(&UnsupportedVersion{Format: format, Version: version})
}

// WriteLocked means a concurrent writer already holds the advisory lock for
// a path.
type WriteLocked struct {
	Path string
}

func (e *WriteLocked) Error() string {
	return fmt.Sprintf("write locked: %s", e.Path)
}

func NewWriteLocked(path string) error {
	return errors.WithStack(&WriteLocked{Path: path})
}

// Cancelled means a batch job's cancellation token fired before a path was
// processed.
type Cancelled struct {
	Path string
}

func (e *Cancelled) Error() string {
	return fmt.Sprintf("cancelled: %s", e.Path)
}

func NewCancelled(path string) error {
	return errors.WithStack(&Cancelled{Path: path})
}

// UnexpectedEof is returned by ByteCursor on a short read.
type UnexpectedEof struct {
	Requested int
	Available int
	Offset    int64
}

func (e *UnexpectedEof) Error() string {
	return fmt.Sprintf("unexpected EOF at offset %d: requested %d bytes, %d available", e.Offset, e.Requested, e.Available)
}

func NewUnexpectedEof(requested, available int, offset int64) error {
	return errors.WithStack(&UnexpectedEof{Requested: requested, Available: available, Offset: offset})
}

// InvalidValue is returned when a decoded value fails a structural
// constraint (e.g. the MSB of a synchsafe byte is set).
type InvalidValue struct {
	What   string
	Offset int64
}

func (e *InvalidValue) Error() string {
	return fmt.Sprintf("invalid value at offset %d: %s", e.Offset, e.What)
}

func NewInvalidValue(what string, offset int64) error {
	return errors.WithStack(&InvalidValue{What: what, Offset: offset})
}

// Diagnostic is a non-fatal note attached to a successfully parsed result,
// e.g. an unknown frame kept opaque, or a truncated optional block dropped.
type Diagnostic struct {
	Code    string
	Format  string
	Message string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("[%s/%s] %s", d.Format, d.Code, d.Message)
}
