// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package handler exposes a RequestHandler over JSON-RPC 2.0 on HTTP, with
// Server-Sent Events for the streaming operations.
package handler

import (
	"errors"

	"github.com/go-json-experiment/json/jsontext"

	a2a "github.com/go-a2a/a2a-core"
)

// JSON-RPC method names of the protocol surface.
const (
	MethodMessageSend      = "message/send"
	MethodMessageStream    = "message/stream"
	MethodTasksGet         = "tasks/get"
	MethodTasksCancel      = "tasks/cancel"
	MethodTasksResubscribe = "tasks/resubscribe"
	MethodPushConfigSet    = "tasks/pushNotificationConfig/set"
	MethodPushConfigGet    = "tasks/pushNotificationConfig/get"
)

// Request is a JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string         `json:"jsonrpc"`
	ID      jsontext.Value `json:"id,omitzero"`
	Method  string         `json:"method"`
	Params  jsontext.Value `json:"params,omitzero"`
}

// Response is a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string         `json:"jsonrpc"`
	ID      jsontext.Value `json:"id,omitzero"`
	Result  any            `json:"result,omitzero"`
	Error   *Error         `json:"error,omitzero"`
}

// Error is a JSON-RPC 2.0 error object.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitzero"`
}

// Error implements the error interface.
func (e *Error) Error() string { return e.Message }

// NewResponse builds a success response for the given request ID.
func NewResponse(id jsontext.Value, result any) *Response {
	return &Response{JSONRPC: "2.0", ID: id, Result: result}
}

// NewErrorResponse builds an error response for the given request ID.
func NewErrorResponse(id jsontext.Value, err error) *Response {
	return &Response{JSONRPC: "2.0", ID: id, Error: asJSONRPCError(err)}
}

// asJSONRPCError maps an error onto the wire error object, using the
// protocol error taxonomy when the error carries a code.
func asJSONRPCError(err error) *Error {
	var jsonrpcErr *Error
	if errors.As(err, &jsonrpcErr) {
		return jsonrpcErr
	}
	var protocolErr a2a.ProtocolError
	if errors.As(err, &protocolErr) {
		return &Error{Code: protocolErr.ErrorCode(), Message: protocolErr.Error()}
	}
	return &Error{Code: a2a.ErrorCodeInternalError, Message: err.Error()}
}
