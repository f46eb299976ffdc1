// Package failure defines the error kinds shared by the gateways and the HTTP
// surface, and a best-effort classifier for upstream error text.
package failure

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrUnconfigured      = errors.New("unconfigured")
	ErrUnavailable       = errors.New("unavailable")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("already exists")
	ErrAuthFailure       = errors.New("authentication not configured")
	ErrPermissionDenied  = errors.New("permission denied")
	ErrInvalidCredential = errors.New("invalid credential")
	ErrQuotaExceeded     = errors.New("quota exceeded")
	ErrRateLimited       = errors.New("rate limited")
	ErrEmptyCompletion   = errors.New("empty completion")
	ErrUnknown           = errors.New("unknown")
)

// Rule maps an upstream error substring to a kind.
type Rule struct {
	Substring string
	Kind      error
}

// Table is an ordered list of rules; the first match wins.
type Table []Rule

// Match returns the kind of the first rule whose substring occurs in text,
// compared case-insensitively, or ErrUnknown.
func (t Table) Match(text string) error {
	lower := strings.ToLower(text)
	for _, r := range t {
		if strings.Contains(lower, strings.ToLower(r.Substring)) {
			return r.Kind
		}
	}
	return ErrUnknown
}

// Wrap annotates err with op and kind so that errors.Is matches both the kind
// and whatever err already wraps.
func Wrap(op string, kind, err error) error {
	if err == nil {
		return fmt.Errorf("%s: %w", op, kind)
	}
	return fmt.Errorf("%s: %w: %w", op, kind, err)
}

// Kind returns the first known kind found in err's chain, or ErrUnknown.
func Kind(err error) error {
	for _, k := range []error{
		ErrInvalidArgument, ErrUnconfigured, ErrUnavailable, ErrNotFound,
		ErrConflict, ErrAuthFailure, ErrPermissionDenied, ErrInvalidCredential,
		ErrQuotaExceeded, ErrRateLimited, ErrEmptyCompletion,
	} {
		if errors.Is(err, k) {
			return k
		}
	}
	return ErrUnknown
}

// Cause returns the innermost error text, which is the raw upstream message
// when err was built with Wrap.
func Cause(err error) string {
	for err != nil {
		switch u := err.(type) {
		case interface{ Unwrap() []error }:
			errs := u.Unwrap()
			if len(errs) == 0 {
				return err.Error()
			}
			err = errs[len(errs)-1]
		case interface{ Unwrap() error }:
			next := u.Unwrap()
			if next == nil {
				return err.Error()
			}
			err = next
		default:
			return err.Error()
		}
	}
	return ""
}
