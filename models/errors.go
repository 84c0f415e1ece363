package models

import "fmt"

// FetchError is a transport failure for one page. It aborts the current source's walk.
type FetchError struct {
	URL    string
	Page   int
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch page %d (%s): status %d", e.Page, e.URL, e.Status)
	}
	return fmt.Sprintf("fetch page %d (%s): %v", e.Page, e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// MalformedRecordError means a single raw item could not be normalised.
type MalformedRecordError struct {
	Field  string
	Value  string
	Reason string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed record: %s %q: %s", e.Field, e.Value, e.Reason)
}

// PersistenceError means the repository did not durably record an insert or update.
type PersistenceError struct {
	Op      string
	Address string
	Err     error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %s %q: %v", e.Op, e.Address, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// NotificationError is a failed notify call. It is logged and never fatal.
type NotificationError struct {
	Ref string
	Err error
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("notify %s: %v", e.Ref, e.Err)
}

func (e *NotificationError) Unwrap() error { return e.Err }
