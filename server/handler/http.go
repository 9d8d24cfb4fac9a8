// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package handler

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"

	a2a "github.com/go-a2a/a2a-core"
	"github.com/go-a2a/a2a-core/server"
)

// JSONRPCHandler serves the A2A protocol as JSON-RPC 2.0 over a single HTTP
// POST endpoint. Streaming methods reply with Server-Sent Events where each
// SSE data frame is one JSON-RPC response carrying an event.
type JSONRPCHandler struct {
	handler server.RequestHandler
	logger  *slog.Logger
}

var _ http.Handler = (*JSONRPCHandler)(nil)

// JSONRPCOption configures a JSONRPCHandler.
type JSONRPCOption func(*JSONRPCHandler)

// WithHandlerLogger sets the logger used for transport-level failures.
func WithHandlerLogger(logger *slog.Logger) JSONRPCOption {
	return func(h *JSONRPCHandler) {
		h.logger = logger
	}
}

// NewJSONRPCHandler creates a JSONRPCHandler delegating to handler.
func NewJSONRPCHandler(handler server.RequestHandler, opts ...JSONRPCOption) (*JSONRPCHandler, error) {
	if handler == nil {
		return nil, fmt.Errorf("request handler cannot be nil")
	}
	h := &JSONRPCHandler{handler: handler, logger: slog.Default()}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// ServeHTTP implements http.Handler.
func (h *JSONRPCHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req Request
	if err := json.UnmarshalRead(r.Body, &req); err != nil {
		h.writeResponse(w, &Response{
			JSONRPC: "2.0",
			Error:   &Error{Code: a2a.ErrorCodeJSONParse, Message: "failed to parse request: " + err.Error()},
		})
		return
	}
	if req.JSONRPC != "2.0" {
		h.writeResponse(w, NewErrorResponse(req.ID, &Error{
			Code:    a2a.ErrorCodeInvalidRequest,
			Message: fmt.Sprintf("unsupported jsonrpc version %q", req.JSONRPC),
		}))
		return
	}

	switch req.Method {
	case MethodMessageSend:
		h.handleMessageSend(w, r, &req)
	case MethodMessageStream:
		h.handleMessageStream(w, r, &req)
	case MethodTasksGet:
		h.handleGetTask(w, r, &req)
	case MethodTasksCancel:
		h.handleCancelTask(w, r, &req)
	case MethodTasksResubscribe:
		h.handleResubscribe(w, r, &req)
	case MethodPushConfigSet:
		h.handleSetPushConfig(w, r, &req)
	case MethodPushConfigGet:
		h.handleGetPushConfig(w, r, &req)
	default:
		h.writeResponse(w, NewErrorResponse(req.ID, &Error{
			Code:    a2a.ErrorCodeMethodNotFound,
			Message: fmt.Sprintf("method %q not found", req.Method),
		}))
	}
}

func (h *JSONRPCHandler) handleMessageSend(w http.ResponseWriter, r *http.Request, req *Request) {
	var params a2a.MessageSendParams
	if !h.decodeParams(w, req, &params) {
		return
	}
	result, err := h.handler.OnMessageSend(r.Context(), &params)
	if err != nil {
		h.writeResponse(w, NewErrorResponse(req.ID, err))
		return
	}
	h.writeResponse(w, NewResponse(req.ID, result))
}

func (h *JSONRPCHandler) handleMessageStream(w http.ResponseWriter, r *http.Request, req *Request) {
	var params a2a.MessageSendParams
	if !h.decodeParams(w, req, &params) {
		return
	}
	events, err := h.handler.OnMessageSendStream(r.Context(), &params)
	if err != nil {
		h.writeResponse(w, NewErrorResponse(req.ID, err))
		return
	}
	h.streamEvents(w, r, req, events)
}

func (h *JSONRPCHandler) handleGetTask(w http.ResponseWriter, r *http.Request, req *Request) {
	var params a2a.TaskQueryParams
	if !h.decodeParams(w, req, &params) {
		return
	}
	result, err := h.handler.OnGetTask(r.Context(), &params)
	if err != nil {
		h.writeResponse(w, NewErrorResponse(req.ID, err))
		return
	}
	h.writeResponse(w, NewResponse(req.ID, result))
}

func (h *JSONRPCHandler) handleCancelTask(w http.ResponseWriter, r *http.Request, req *Request) {
	var params a2a.TaskIDParams
	if !h.decodeParams(w, req, &params) {
		return
	}
	result, err := h.handler.OnCancelTask(r.Context(), &params)
	if err != nil {
		h.writeResponse(w, NewErrorResponse(req.ID, err))
		return
	}
	h.writeResponse(w, NewResponse(req.ID, result))
}

func (h *JSONRPCHandler) handleResubscribe(w http.ResponseWriter, r *http.Request, req *Request) {
	var params a2a.TaskIDParams
	if !h.decodeParams(w, req, &params) {
		return
	}
	events, err := h.handler.OnResubscribeToTask(r.Context(), &params)
	if err != nil {
		h.writeResponse(w, NewErrorResponse(req.ID, err))
		return
	}
	h.streamEvents(w, r, req, events)
}

func (h *JSONRPCHandler) handleSetPushConfig(w http.ResponseWriter, r *http.Request, req *Request) {
	var params a2a.TaskPushNotificationConfig
	if !h.decodeParams(w, req, &params) {
		return
	}
	result, err := h.handler.OnSetTaskPushNotificationConfig(r.Context(), &params)
	if err != nil {
		h.writeResponse(w, NewErrorResponse(req.ID, err))
		return
	}
	h.writeResponse(w, NewResponse(req.ID, result))
}

func (h *JSONRPCHandler) handleGetPushConfig(w http.ResponseWriter, r *http.Request, req *Request) {
	var params a2a.TaskIDParams
	if !h.decodeParams(w, req, &params) {
		return
	}
	result, err := h.handler.OnGetTaskPushNotificationConfig(r.Context(), &params)
	if err != nil {
		h.writeResponse(w, NewErrorResponse(req.ID, err))
		return
	}
	h.writeResponse(w, NewResponse(req.ID, result))
}

// decodeParams unmarshals the request params, writing an invalid-params
// error response on failure. It reports whether decoding succeeded.
func (h *JSONRPCHandler) decodeParams(w http.ResponseWriter, req *Request, into any) bool {
	if len(req.Params) == 0 || string(req.Params) == "null" {
		h.writeResponse(w, NewErrorResponse(req.ID, &Error{
			Code:    a2a.ErrorCodeInvalidParams,
			Message: "params are required",
		}))
		return false
	}
	if err := json.Unmarshal(req.Params, into); err != nil {
		h.writeResponse(w, NewErrorResponse(req.ID, &Error{
			Code:    a2a.ErrorCodeInvalidParams,
			Message: "failed to parse params: " + err.Error(),
		}))
		return false
	}
	return true
}

func (h *JSONRPCHandler) writeResponse(w http.ResponseWriter, resp *Response) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.MarshalWrite(w, resp); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

// streamEvents writes each event as an SSE data frame containing one
// JSON-RPC response, flushing after every frame.
func (h *JSONRPCHandler) streamEvents(w http.ResponseWriter, r *http.Request, req *Request, events <-chan a2a.Event) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		h.writeResponse(w, NewErrorResponse(req.ID, &Error{
			Code:    a2a.ErrorCodeInternalError,
			Message: "streaming is not supported by the underlying connection",
		}))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := h.writeSSE(w, req.ID, ev); err != nil {
				h.logger.Error("failed to write event frame", "error", err)
				return
			}
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}

func (h *JSONRPCHandler) writeSSE(w http.ResponseWriter, id jsontext.Value, ev a2a.Event) error {
	payload, err := json.Marshal(NewResponse(id, ev))
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
		return err
	}
	return nil
}
