// Copyright 2026 The AgentDeck Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"errors"
	"fmt"
)

// ErrorCode classifies a failed request so clients can react without
// parsing the message. It travels in [Response].Code.
type ErrorCode string

const (
	// CodeInvalidRequest: the request was malformed or missed a
	// required field. Retrying it unchanged fails again.
	CodeInvalidRequest ErrorCode = "invalid-request"

	// CodeUnknownAction: no handler is registered for the action.
	CodeUnknownAction ErrorCode = "unknown-action"

	// CodeNotFound: a named resource does not exist.
	CodeNotFound ErrorCode = "not-found"

	// CodeRejected: the operation does not apply to the resource in
	// its current state, such as input to a session that has ended.
	CodeRejected ErrorCode = "rejected-operation"

	// CodeUnavailable: a backing service is failing. The request may
	// succeed later.
	CodeUnavailable ErrorCode = "service-unavailable"

	// CodeDisabled: the feature is not configured on this server.
	CodeDisabled ErrorCode = "disabled"

	// CodeInternal: anything not classified otherwise.
	CodeInternal ErrorCode = "internal"
)

// CodedError attaches an ErrorCode to an error returned by an
// [ActionFunc]. The message sent to the client is Err's.
type CodedError struct {
	Code ErrorCode
	Err  error
}

func (e *CodedError) Error() string { return e.Err.Error() }

func (e *CodedError) Unwrap() error { return e.Err }

// InvalidRequest returns a CodeInvalidRequest error.
func InvalidRequest(format string, args ...any) *CodedError {
	return &CodedError{Code: CodeInvalidRequest, Err: fmt.Errorf(format, args...)}
}

// ErrorCoder maps a handler error that carries no [CodedError] to a
// code. Return "" to fall back to [CodeInternal].
type ErrorCoder func(error) ErrorCode

// codeOf returns the code of the first CodedError in err's chain, then
// asks coder, then falls back to CodeInternal.
func codeOf(err error, coder ErrorCoder) ErrorCode {
	var coded *CodedError
	if errors.As(err, &coded) {
		return coded.Code
	}
	if coder != nil {
		if code := coder(err); code != "" {
			return code
		}
	}
	return CodeInternal
}

// IsCode reports whether err is a *ServiceError carrying code.
func IsCode(err error, code ErrorCode) bool {
	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		return serviceErr.Code == code
	}
	return false
}
