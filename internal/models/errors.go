package models

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by repositories when a student does not exist
var ErrNotFound = errors.New("student not found")

// ValidationError marks a malformed field on a single record
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// DataError marks a record whose schedule cannot be determined
type DataError struct {
	StudentID string
	Reason    string
}

func (e *DataError) Error() string {
	return fmt.Sprintf("student %s: %s", e.StudentID, e.Reason)
}

// ChannelError wraps a delivery failure from a messaging adapter
type ChannelError struct {
	StudentID string
	Err       error
}

func (e *ChannelError) Error() string {
	return fmt.Sprintf("channel delivery to student %s failed: %v", e.StudentID, e.Err)
}

func (e *ChannelError) Unwrap() error {
	return e.Err
}
