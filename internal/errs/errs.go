// Package errs defines the error kinds surfaced by an extraction job.
//
// Kinds decide how far a failure travels: table export failures stay on their
// manifest entry, everything else is reported at the request boundary.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind string

const (
	KindUnknown        Kind = ""
	KindArchive        Kind = "ARCHIVE"         // corrupt archive or no extract inside
	KindConnection     Kind = "CONNECTION"      // engine failed to start or open the file
	KindTableExport    Kind = "TABLE_EXPORT"    // one table's columns, query or CSV write failed
	KindDownload       Kind = "DOWNLOAD"        // archive could not be fetched
	KindUpload         Kind = "UPLOAD"          // a produced CSV could not be stored
	KindStorageConfig  Kind = "STORAGE_CONFIG"  // object store settings missing or invalid
	KindInvalidRequest Kind = "INVALID_REQUEST" // caller sent an unusable request
	KindBusy           Kind = "BUSY"            // no job slot became free in time
)

// Error carries a Kind and the operation that failed.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

// E builds an *Error. A nil err yields a nil *Error.
func E(kind Kind, op string, err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Errorf is E with a formatted cause.
func Errorf(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Op == "" {
		return e.Err.Error()
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the kind of the outermost *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Is reports whether err carries kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
