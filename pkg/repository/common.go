package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-pkgz/repeater/v2"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// errPermanent marks failures retrying can't fix, repeater stops on it
var errPermanent = errors.New("permanent error")

type permanentError struct{ err error }

func (e *permanentError) Error() string        { return e.err.Error() }
func (e *permanentError) Unwrap() error        { return e.err }
func (e *permanentError) Is(target error) bool { return target == errPermanent }

// withRetry runs fn with backoff while it fails with sqlite busy or locked errors
func withRetry(ctx context.Context, fn func() error) error {
	retrier := repeater.NewBackoff(5, 50*time.Millisecond, repeater.WithMaxDelay(2*time.Second))
	err := retrier.Do(ctx, func() error {
		if err := fn(); err != nil {
			if !isBusy(err) {
				return &permanentError{err: err}
			}
			return err
		}
		return nil
	}, errPermanent)

	var pe *permanentError
	if errors.As(err, &pe) {
		return pe.err
	}
	return err
}

// isBusy checks if sqlite refused the operation because the database is locked
func isBusy(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		code := se.Code() & 0xff // primary code, extended codes keep it in the low byte
		return code == sqlite3.SQLITE_BUSY || code == sqlite3.SQLITE_LOCKED
	}
	return strings.Contains(err.Error(), "database is locked")
}
