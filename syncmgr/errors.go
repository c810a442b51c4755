// ABOUTME: Sync failure taxonomy and HTTP status classification
// ABOUTME: Transient failures stay queued for the next drain; permanent ones need a data change
package syncmgr

import (
	"errors"
	"fmt"
)

// TransientError is a network failure, timeout, or 5xx response during
// replay. The operation stays queued and is retried on the next drain.
type TransientError struct {
	Status int // 0 when the request never reached the server
	Err    error
}

func (e *TransientError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("transient sync failure (status %d): %v", e.Status, e.Err)
	}
	return fmt.Sprintf("transient sync failure: %v", e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// PermanentError is a 4xx validation failure. It is never retried
// automatically; the entry remains queued until the user corrects or
// discards it.
type PermanentError struct {
	Status int
	Msg    string
}

func (e *PermanentError) Error() string {
	return fmt.Sprintf("permanent sync failure (status %d): %s", e.Status, e.Msg)
}

// IsTransient reports whether the error should leave the operation queued
// for a later retry.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// IsPermanent reports whether the error requires user action before the
// operation can succeed.
func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}

// classifyStatus maps a non-2xx HTTP status to the failure taxonomy.
// 5xx means the server is unwell and the replay may succeed later; anything
// else in the error range means the payload itself was rejected.
func classifyStatus(status int, body string) error {
	if status >= 500 {
		return &TransientError{Status: status, Err: fmt.Errorf("server error: %s", body)}
	}
	return &PermanentError{Status: status, Msg: body}
}
