// SPDX-FileCopyrightText: 2025 INDUSTRIA DE DISEÑO TEXTIL, S.A. (INDITEX, S.A.)
//
// SPDX-License-Identifier: Apache-2.0

package kubernetes

import (
	"errors"
	"fmt"
	"io"
	"net"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	utilnet "k8s.io/apimachinery/pkg/util/net"
)

// ErrNotFound is returned when the resource, or the requested field of it, does not exist.
var ErrNotFound = errors.New("not found")

// TransientAPIError wraps an API failure that is expected to go away on retry:
// timeouts, throttling, server errors and broken connections.
type TransientAPIError struct {
	Op  string
	Err error
}

func (e *TransientAPIError) Error() string {
	return fmt.Sprintf("transient API error on %s: %v", e.Op, e.Err)
}

func (e *TransientAPIError) Unwrap() error {
	return e.Err
}

// ResourceConflictError is returned when a resource cannot be written because somebody else
// owns its current state, e.g. it is being deleted while it is applied again.
type ResourceConflictError struct {
	Resource string
	Reason   string
	Err      error
}

func (e *ResourceConflictError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("conflict on %s: %s: %v", e.Resource, e.Reason, e.Err)
	}
	return fmt.Sprintf("conflict on %s: %s", e.Resource, e.Reason)
}

func (e *ResourceConflictError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err, or any error it wraps, is a TransientAPIError.
func IsTransient(err error) bool {
	var transient *TransientAPIError
	return errors.As(err, &transient)
}

// IsNotFound reports whether err means the resource or field is absent.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict reports whether err is a ResourceConflictError.
func IsConflict(err error) bool {
	var conflict *ResourceConflictError
	return errors.As(err, &conflict)
}

// Classify turns a raw client error into the harness error taxonomy.
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if apierrors.IsNotFound(err) {
		return fmt.Errorf("%s: %w: %w", op, ErrNotFound, err)
	}
	if isTransient(err) {
		return &TransientAPIError{Op: op, Err: err}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isTransient(err error) bool {
	switch {
	case apierrors.IsTimeout(err),
		apierrors.IsServerTimeout(err),
		apierrors.IsTooManyRequests(err),
		apierrors.IsServiceUnavailable(err),
		apierrors.IsInternalError(err),
		apierrors.IsUnexpectedServerError(err):
		return true
	case utilnet.IsConnectionRefused(err), utilnet.IsConnectionReset(err), utilnet.IsProbableEOF(err):
		return true
	case errors.Is(err, io.ErrUnexpectedEOF):
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
