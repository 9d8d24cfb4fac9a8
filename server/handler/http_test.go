// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package handler

import (
	"bufio"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"

	a2a "github.com/go-a2a/a2a-core"
	"github.com/go-a2a/a2a-core/server"
	"github.com/go-a2a/a2a-core/server/agent_execution"
	"github.com/go-a2a/a2a-core/server/event"
	"github.com/go-a2a/a2a-core/server/task"
)

// echoExecutor completes every task with one text artifact.
type echoExecutor struct{}

func (echoExecutor) Execute(ctx context.Context, reqCtx *agent_execution.RequestContext, queue *event.EventQueue) error {
	updater, err := task.NewUpdater(queue, reqCtx.TaskID, reqCtx.ContextID)
	if err != nil {
		return err
	}
	if err := updater.StartWork(ctx, nil); err != nil {
		return err
	}
	artifact, err := a2a.NewTextArtifact("echo", reqCtx.UserInput(" "), "")
	if err != nil {
		return err
	}
	if err := updater.AddArtifact(ctx, artifact); err != nil {
		return err
	}
	return updater.Complete(ctx, nil)
}

func (echoExecutor) Cancel(ctx context.Context, reqCtx *agent_execution.RequestContext, queue *event.EventQueue) error {
	updater, err := task.NewUpdater(queue, reqCtx.TaskID, reqCtx.ContextID)
	if err != nil {
		return err
	}
	return updater.Cancel(ctx, nil)
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	requestHandler, err := server.NewDefaultRequestHandler(echoExecutor{})
	if err != nil {
		t.Fatal(err)
	}
	rpc, err := NewJSONRPCHandler(requestHandler)
	if err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(rpc)
	t.Cleanup(srv.Close)
	return srv
}

func call(t *testing.T, srv *httptest.Server, method string, params any) *Response {
	t.Helper()

	body, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
		"params":  params,
	})
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(srv.URL, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var rpcResp Response
	if err := json.UnmarshalRead(resp.Body, &rpcResp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return &rpcResp
}

func TestJSONRPCHandler_MessageSend(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	resp := call(t, srv, MethodMessageSend, a2a.MessageSendParams{
		Message: a2a.NewUserTextMessage("hello", "", ""),
	})
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}

	raw, err := json.Marshal(resp.Result)
	if err != nil {
		t.Fatal(err)
	}
	var got a2a.Task
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("result is not a task: %v", err)
	}
	if got.Status.State != a2a.TaskStateCompleted {
		t.Errorf("state = %v, want %v", got.Status.State, a2a.TaskStateCompleted)
	}
	if len(got.Artifacts) != 1 {
		t.Errorf("artifact count = %d, want 1", len(got.Artifacts))
	}
}

func TestJSONRPCHandler_TaskNotFound(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	resp := call(t, srv, MethodTasksGet, a2a.TaskQueryParams{ID: "task-404"})
	if resp.Error == nil {
		t.Fatal("expected error response")
	}
	if resp.Error.Code != a2a.ErrorCodeTaskNotFound {
		t.Errorf("error code = %d, want %d", resp.Error.Code, a2a.ErrorCodeTaskNotFound)
	}
}

func TestJSONRPCHandler_MethodNotFound(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	resp := call(t, srv, "tasks/unknown", a2a.TaskIDParams{ID: "task-1"})
	if resp.Error == nil {
		t.Fatal("expected error response")
	}
	if resp.Error.Code != a2a.ErrorCodeMethodNotFound {
		t.Errorf("error code = %d, want %d", resp.Error.Code, a2a.ErrorCodeMethodNotFound)
	}
}

func TestJSONRPCHandler_ParseError(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	resp, err := http.Post(srv.URL, "application/json", strings.NewReader("{not json"))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var rpcResp Response
	if err := json.UnmarshalRead(resp.Body, &rpcResp); err != nil {
		t.Fatal(err)
	}
	if rpcResp.Error == nil || rpcResp.Error.Code != a2a.ErrorCodeJSONParse {
		t.Errorf("error = %+v, want code %d", rpcResp.Error, a2a.ErrorCodeJSONParse)
	}
}

func TestJSONRPCHandler_MissingParams(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	resp := call(t, srv, MethodMessageSend, nil)
	if resp.Error == nil {
		t.Fatal("expected error response")
	}
	if resp.Error.Code != a2a.ErrorCodeInvalidParams {
		t.Errorf("error code = %d, want %d", resp.Error.Code, a2a.ErrorCodeInvalidParams)
	}
}

func TestJSONRPCHandler_MethodNotAllowed(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusMethodNotAllowed)
	}
}

func TestJSONRPCHandler_MessageStream(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	body, err := json.Marshal(&Request{
		JSONRPC: "2.0",
		ID:      jsontext.Value("1"),
		Method:  MethodMessageStream,
		Params: mustMarshal(t, a2a.MessageSendParams{
			Message: a2a.NewUserTextMessage("hello", "", ""),
		}),
	})
	if err != nil {
		t.Fatal(err)
	}

	resp, err := http.Post(srv.URL, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Content-Type = %q, want text/event-stream", ct)
	}

	var frames int
	var lastPayload string
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		frames++
		lastPayload = strings.TrimPrefix(line, "data: ")
	}

	// working status, artifact, completed status
	if frames != 3 {
		t.Fatalf("SSE frames = %d, want 3", frames)
	}
	var last Response
	if err := json.Unmarshal([]byte(lastPayload), &last); err != nil {
		t.Fatal(err)
	}
	raw, err := json.Marshal(last.Result)
	if err != nil {
		t.Fatal(err)
	}
	var final a2a.TaskStatusUpdateEvent
	if err := json.Unmarshal(raw, &final); err != nil {
		t.Fatal(err)
	}
	if !final.Final || final.Status.State != a2a.TaskStateCompleted {
		t.Errorf("last frame = %+v, want final completed status", final)
	}
}

func mustMarshal(t *testing.T, v any) jsontext.Value {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return jsontext.Value(data)
}
