// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package server implements the task lifecycle engine behind an A2A agent:
// request handling, task persistence, event routing and push notification
// delivery. Transport layers live in subpackages and delegate every
// operation to a RequestHandler.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	a2a "github.com/go-a2a/a2a-core"
	"github.com/go-a2a/a2a-core/server/agent_execution"
	"github.com/go-a2a/a2a-core/server/event"
	"github.com/go-a2a/a2a-core/server/task"
)

// RequestHandler is the transport-agnostic surface of an A2A server. Each
// method corresponds to one protocol operation; transports validate and
// decode requests, then delegate here.
type RequestHandler interface {
	// OnMessageSend handles message/send. The returned event is either a
	// direct *a2a.Message reply or the resulting *a2a.Task.
	OnMessageSend(ctx context.Context, params *a2a.MessageSendParams) (a2a.Event, error)

	// OnMessageSendStream handles message/stream. The returned channel
	// yields events in queue order and is closed when the stream ends.
	OnMessageSendStream(ctx context.Context, params *a2a.MessageSendParams) (<-chan a2a.Event, error)

	// OnGetTask handles tasks/get.
	OnGetTask(ctx context.Context, params *a2a.TaskQueryParams) (*a2a.Task, error)

	// OnCancelTask handles tasks/cancel.
	OnCancelTask(ctx context.Context, params *a2a.TaskIDParams) (*a2a.Task, error)

	// OnSetTaskPushNotificationConfig handles tasks/pushNotificationConfig/set.
	OnSetTaskPushNotificationConfig(ctx context.Context, params *a2a.TaskPushNotificationConfig) (*a2a.TaskPushNotificationConfig, error)

	// OnGetTaskPushNotificationConfig handles tasks/pushNotificationConfig/get.
	OnGetTaskPushNotificationConfig(ctx context.Context, params *a2a.TaskIDParams) (*a2a.TaskPushNotificationConfig, error)

	// OnResubscribeToTask handles tasks/resubscribe, reattaching a caller to
	// the event stream of a running task.
	OnResubscribeToTask(ctx context.Context, params *a2a.TaskIDParams) (<-chan a2a.Event, error)
}

// runningTask tracks one in-flight execution.
type runningTask struct {
	cancel  context.CancelFunc
	queue   *event.EventQueue
	manager *task.Manager
}

// DefaultRequestHandler is the standard RequestHandler implementation. It
// wires an AgentExecutor to a task store and per-task event queues, applies
// every event to the task record exactly once, and fans events out to
// streaming subscribers and the push notifier.
type DefaultRequestHandler struct {
	executor     agent_execution.AgentExecutor
	store        task.Store
	pushStore    task.PushConfigStore
	notifier     *task.PushNotifier
	queueManager *event.Manager
	builder      *agent_execution.RequestContextBuilder
	logger       *slog.Logger
	tracer       trace.Tracer

	mu      sync.Mutex
	running map[string]*runningTask
}

var _ RequestHandler = (*DefaultRequestHandler)(nil)

// NewDefaultRequestHandler creates a handler around executor. Without
// options it uses in-memory task and push config stores and a default push
// notifier.
func NewDefaultRequestHandler(executor agent_execution.AgentExecutor, opts ...Option) (*DefaultRequestHandler, error) {
	if executor == nil {
		return nil, fmt.Errorf("agent executor cannot be nil")
	}

	h := &DefaultRequestHandler{
		executor:     executor,
		store:        task.NewInMemoryStore(),
		pushStore:    task.NewInMemoryPushConfigStore(),
		queueManager: event.NewManager(),
		builder:      agent_execution.NewRequestContextBuilder(),
		logger:       slog.Default(),
		tracer:       otel.Tracer("github.com/go-a2a/a2a-core/server"),
		running:      make(map[string]*runningTask),
	}
	for _, opt := range opts {
		opt(h)
	}

	if h.notifier == nil && h.pushStore != nil {
		notifier, err := task.NewPushNotifier(h.pushStore, task.WithNotifierLogger(h.logger))
		if err != nil {
			return nil, err
		}
		h.notifier = notifier
	}
	return h, nil
}

// OnMessageSend implements RequestHandler. It runs the executor and blocks
// until the event stream ends, returning the agent's direct message reply
// or the task in its final observed state. A request carrying a
// Configuration with Blocking unset follows the wire default and is served
// non-blocking: it returns after the first applied event while the
// lifecycle completes in the background.
func (h *DefaultRequestHandler) OnMessageSend(ctx context.Context, params *a2a.MessageSendParams) (a2a.Event, error) {
	ctx, span := h.tracer.Start(ctx, "a2a.OnMessageSend")
	defer span.End()

	execution, err := h.startExecution(ctx, params)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(
		attribute.String("a2a.task_id", execution.reqCtx.TaskID),
		attribute.String("a2a.context_id", execution.reqCtx.ContextID),
	)

	aggregator := task.NewAggregator(execution.manager, h.logger)
	consumer := event.NewConsumer(execution.queue)

	// The drain runs on a detached context: a caller disconnect must not
	// abort the task, only tasks/cancel does.
	drainCtx := context.WithoutCancel(ctx)

	if params.Configuration != nil && !params.Configuration.Blocking {
		return h.sendNonBlocking(drainCtx, execution, aggregator, consumer, params)
	}

	result, err := aggregator.ConsumeAll(drainCtx, consumer)
	h.finishExecution(drainCtx, execution, err != nil || result.Message == nil)
	if err != nil {
		// An executor that exits without emitting anything leaves no task
		// record behind; finishExecution just force-failed it, so surface
		// that snapshot rather than the aggregation error.
		var notFound a2a.TaskNotFoundError
		if !errors.As(err, &notFound) {
			return nil, h.asProtocolError(err)
		}
	} else if result.Message != nil {
		return result.Message, nil
	}

	// Re-read so the forced failure of a silently exiting executor is
	// reflected in the response.
	final, err := execution.manager.Task(drainCtx)
	if err != nil {
		return nil, h.asProtocolError(err)
	}
	return truncated(final, historyLength(params)), nil
}

// sendNonBlocking returns as soon as the first event has been applied; the
// rest of the stream is drained in the background so the task still reaches
// its final state and is persisted.
func (h *DefaultRequestHandler) sendNonBlocking(ctx context.Context, execution *execution, aggregator *task.Aggregator, consumer *event.Consumer, params *a2a.MessageSendParams) (a2a.Event, error) {
	events := aggregator.ConsumeAndEmit(ctx, consumer)

	first, ok := <-events
	_, sawMessage := first.(*a2a.Message)
	drain := func() {
		for ev := range events {
			if _, isMessage := ev.(*a2a.Message); isMessage {
				sawMessage = true
			}
		}
		h.finishExecution(ctx, execution, !sawMessage)
	}
	if !ok {
		// Executor produced nothing at all.
		h.finishExecution(ctx, execution, true)
		final, err := execution.manager.Task(ctx)
		if err != nil {
			return nil, h.asProtocolError(err)
		}
		return truncated(final, historyLength(params)), nil
	}
	go drain()

	if message, isMessage := first.(*a2a.Message); isMessage {
		return message, nil
	}
	snapshot, err := execution.manager.Task(ctx)
	if err != nil {
		return nil, h.asProtocolError(err)
	}
	return truncated(snapshot, historyLength(params)), nil
}

// OnMessageSendStream implements RequestHandler. Events are persisted before
// they are emitted, so a consumer observing an event can rely on the store
// reflecting it.
func (h *DefaultRequestHandler) OnMessageSendStream(ctx context.Context, params *a2a.MessageSendParams) (<-chan a2a.Event, error) {
	ctx, span := h.tracer.Start(ctx, "a2a.OnMessageSendStream")
	defer span.End()

	execution, err := h.startExecution(ctx, params)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(
		attribute.String("a2a.task_id", execution.reqCtx.TaskID),
		attribute.String("a2a.context_id", execution.reqCtx.ContextID),
	)

	aggregator := task.NewAggregator(execution.manager, h.logger)
	consumer := event.NewConsumer(execution.queue)

	// Drain on a detached context so a dropped subscriber does not abort
	// the execution; events keep flowing into the store.
	drainCtx := context.WithoutCancel(ctx)
	events := aggregator.ConsumeAndEmit(drainCtx, consumer)

	out := make(chan a2a.Event)
	go func() {
		defer close(out)
		sawMessage := false
		for ev := range events {
			if _, isMessage := ev.(*a2a.Message); isMessage {
				sawMessage = true
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				// Subscriber went away; keep draining so the task still
				// completes and persists.
				go func() {
					for ev := range events {
						if _, isMessage := ev.(*a2a.Message); isMessage {
							sawMessage = true
						}
					}
					h.finishExecution(drainCtx, execution, !sawMessage)
				}()
				return
			}
		}
		// Surface the forced failure of a silently exiting executor as the
		// closing event of the stream.
		wasRunning := !sawMessage && !execution.manager.Terminal()
		h.finishExecution(drainCtx, execution, !sawMessage)
		if wasRunning {
			if t, err := execution.manager.Task(drainCtx); err == nil {
				ev := a2a.NewStatusUpdateEvent(t.ID, t.ContextID, t.Status.State, t.Status.Message, true)
				select {
				case out <- ev:
				case <-ctx.Done():
				}
			}
		}
	}()
	return out, nil
}

// OnGetTask implements RequestHandler.
func (h *DefaultRequestHandler) OnGetTask(ctx context.Context, params *a2a.TaskQueryParams) (*a2a.Task, error) {
	ctx, span := h.tracer.Start(ctx, "a2a.OnGetTask")
	defer span.End()

	if params == nil {
		return nil, a2a.InvalidRequestError{Reason: "params are required"}
	}
	if err := params.Validate(); err != nil {
		return nil, a2a.InvalidRequestError{Reason: err.Error()}
	}
	span.SetAttributes(attribute.String("a2a.task_id", params.ID))

	t, err := h.store.Get(ctx, params.ID)
	if err != nil {
		return nil, h.asProtocolError(err)
	}
	return truncated(t, params.HistoryLength), nil
}

// OnCancelTask implements RequestHandler. Cancellation is cooperative: the
// executor is asked to stop and its context is canceled, then the canceled
// state is applied through the task manager, whose terminal latch arbitrates
// the race against an executor finishing concurrently.
func (h *DefaultRequestHandler) OnCancelTask(ctx context.Context, params *a2a.TaskIDParams) (*a2a.Task, error) {
	ctx, span := h.tracer.Start(ctx, "a2a.OnCancelTask")
	defer span.End()

	if params == nil {
		return nil, a2a.InvalidRequestError{Reason: "params are required"}
	}
	if err := params.Validate(); err != nil {
		return nil, a2a.InvalidRequestError{Reason: err.Error()}
	}
	span.SetAttributes(attribute.String("a2a.task_id", params.ID))

	t, err := h.store.Get(ctx, params.ID)
	if err != nil {
		return nil, h.asProtocolError(err)
	}
	if t.Status.State.Terminal() {
		return nil, a2a.TaskNotCancelableError{TaskID: t.ID, State: t.Status.State}
	}

	h.mu.Lock()
	rt := h.running[t.ID]
	h.mu.Unlock()

	canceled := a2a.NewStatusUpdateEvent(t.ID, t.ContextID, a2a.TaskStateCanceled, nil, true)

	if rt == nil {
		// No live execution: latch the record directly.
		manager, err := task.NewManager(task.ManagerConfig{
			TaskID:         t.ID,
			ContextID:      t.ContextID,
			Store:          h.store,
			StatusListener: h.pushStatus,
			Logger:         h.logger,
		})
		if err != nil {
			return nil, a2a.InternalError{Err: err}
		}
		if err := manager.Process(ctx, canceled); err != nil {
			return nil, h.asProtocolError(err)
		}
		final, err := manager.Task(ctx)
		if err != nil {
			return nil, h.asProtocolError(err)
		}
		if final.Status.State != a2a.TaskStateCanceled {
			// An execution finished between the registry lookup and the
			// manager load; its terminal state won.
			return nil, a2a.TaskNotCancelableError{TaskID: final.ID, State: final.Status.State}
		}
		return final, nil
	}

	// Latch the canceled state first so the drain side cannot force-fail
	// the task while the executor winds down; if the executor already
	// produced a terminal event this is dropped by the manager's latch.
	if err := rt.manager.Process(ctx, canceled); err != nil {
		return nil, h.asProtocolError(err)
	}

	reqCtx := h.builder.BuildForCancel(ctx, t)
	if err := h.executor.Cancel(ctx, reqCtx, rt.queue); err != nil {
		h.logger.WarnContext(ctx, "executor cancel hook failed",
			"task_id", t.ID, "error", err)
	}
	rt.cancel()

	// Let streaming subscribers observe the cancellation. The queue may
	// already be closed if the executor just returned.
	if err := rt.queue.Enqueue(ctx, canceled); err != nil && !errors.Is(err, event.ErrQueueClosed) {
		h.logger.WarnContext(ctx, "failed to publish cancellation event",
			"task_id", t.ID, "error", err)
	}

	final, err := rt.manager.Task(ctx)
	if err != nil {
		return nil, h.asProtocolError(err)
	}
	if final.Status.State != a2a.TaskStateCanceled && final.Status.State.Terminal() {
		// The executor won the race with a different terminal state.
		return nil, a2a.TaskNotCancelableError{TaskID: final.ID, State: final.Status.State}
	}
	return final, nil
}

// OnSetTaskPushNotificationConfig implements RequestHandler.
func (h *DefaultRequestHandler) OnSetTaskPushNotificationConfig(ctx context.Context, params *a2a.TaskPushNotificationConfig) (*a2a.TaskPushNotificationConfig, error) {
	ctx, span := h.tracer.Start(ctx, "a2a.OnSetTaskPushNotificationConfig")
	defer span.End()

	if h.notifier == nil || h.pushStore == nil {
		return nil, a2a.PushNotificationNotSupportedError{}
	}
	if params == nil {
		return nil, a2a.InvalidRequestError{Reason: "params are required"}
	}
	if err := params.Validate(); err != nil {
		return nil, a2a.InvalidRequestError{Reason: err.Error()}
	}
	span.SetAttributes(attribute.String("a2a.task_id", params.TaskID))

	if _, err := h.store.Get(ctx, params.TaskID); err != nil {
		return nil, h.asProtocolError(err)
	}

	saved, err := h.pushStore.Save(ctx, params.TaskID, &params.PushNotificationConfig)
	if err != nil {
		return nil, h.asProtocolError(err)
	}
	return &a2a.TaskPushNotificationConfig{
		TaskID:                 params.TaskID,
		PushNotificationConfig: *saved,
	}, nil
}

// OnGetTaskPushNotificationConfig implements RequestHandler.
func (h *DefaultRequestHandler) OnGetTaskPushNotificationConfig(ctx context.Context, params *a2a.TaskIDParams) (*a2a.TaskPushNotificationConfig, error) {
	ctx, span := h.tracer.Start(ctx, "a2a.OnGetTaskPushNotificationConfig")
	defer span.End()

	if h.notifier == nil || h.pushStore == nil {
		return nil, a2a.PushNotificationNotSupportedError{}
	}
	if params == nil {
		return nil, a2a.InvalidRequestError{Reason: "params are required"}
	}
	if err := params.Validate(); err != nil {
		return nil, a2a.InvalidRequestError{Reason: err.Error()}
	}
	span.SetAttributes(attribute.String("a2a.task_id", params.ID))

	if _, err := h.store.Get(ctx, params.ID); err != nil {
		return nil, h.asProtocolError(err)
	}

	config, err := h.pushStore.Get(ctx, params.ID, "")
	if err != nil {
		return nil, h.asProtocolError(err)
	}
	return &a2a.TaskPushNotificationConfig{
		TaskID:                 params.ID,
		PushNotificationConfig: *config,
	}, nil
}

// OnResubscribeToTask implements RequestHandler. The returned channel first
// yields the current task snapshot, then live events tapped from the running
// execution. For a task with no live execution only the snapshot is yielded.
func (h *DefaultRequestHandler) OnResubscribeToTask(ctx context.Context, params *a2a.TaskIDParams) (<-chan a2a.Event, error) {
	ctx, span := h.tracer.Start(ctx, "a2a.OnResubscribeToTask")
	defer span.End()

	if params == nil {
		return nil, a2a.InvalidRequestError{Reason: "params are required"}
	}
	if err := params.Validate(); err != nil {
		return nil, a2a.InvalidRequestError{Reason: err.Error()}
	}
	span.SetAttributes(attribute.String("a2a.task_id", params.ID))

	t, err := h.store.Get(ctx, params.ID)
	if err != nil {
		return nil, h.asProtocolError(err)
	}

	tap, err := h.queueManager.Tap(params.ID)
	if err != nil && !errors.Is(err, event.ErrQueueNotFound) && !errors.Is(err, event.ErrQueueClosed) {
		return nil, a2a.InternalError{Err: err}
	}

	out := make(chan a2a.Event)
	go func() {
		defer close(out)
		select {
		case out <- t:
		case <-ctx.Done():
			return
		}
		if tap == nil {
			return
		}
		consumer := event.NewConsumer(tap)
		for ev := range consumer.ConsumeAll(ctx) {
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// execution bundles the moving parts of one executor run.
type execution struct {
	reqCtx  *agent_execution.RequestContext
	queue   *event.EventQueue
	manager *task.Manager
}

// startExecution resolves the request context, registers the running task
// and launches the executor on its own goroutine. Execution is detached
// from the caller's context so a dropped connection does not abort the
// task; cancellation happens only through tasks/cancel.
func (h *DefaultRequestHandler) startExecution(ctx context.Context, params *a2a.MessageSendParams) (*execution, error) {
	if params == nil {
		return nil, a2a.InvalidRequestError{Reason: "params are required"}
	}
	if err := params.Validate(); err != nil {
		return nil, a2a.InvalidRequestError{Reason: err.Error()}
	}

	var existing *a2a.Task
	if params.Message.TaskID != "" {
		t, err := h.store.Get(ctx, params.Message.TaskID)
		var notFound a2a.TaskNotFoundError
		switch {
		case err == nil:
			existing = t
		case errors.As(err, &notFound):
			// Caller-assigned ID for a task that does not exist yet; the
			// send creates it.
		default:
			return nil, h.asProtocolError(err)
		}
	}

	reqCtx, err := h.builder.Build(ctx, params, existing)
	if err != nil {
		return nil, h.asProtocolError(err)
	}

	h.mu.Lock()
	if _, ok := h.running[reqCtx.TaskID]; ok {
		h.mu.Unlock()
		return nil, a2a.InvalidRequestError{
			Reason: "task " + reqCtx.TaskID + " already has an active execution",
		}
	}
	h.mu.Unlock()

	if config := params.Configuration; config != nil && config.PushNotificationConfig != nil && h.pushStore != nil {
		if _, err := h.pushStore.Save(ctx, reqCtx.TaskID, config.PushNotificationConfig); err != nil {
			return nil, h.asProtocolError(err)
		}
	}

	// The registry check above is advisory; the queue manager is the
	// authority, so a send losing this race still maps to InvalidRequest.
	queue, err := h.queueManager.Create(reqCtx.TaskID)
	if err != nil {
		if errors.Is(err, event.ErrQueueExists) {
			return nil, a2a.InvalidRequestError{
				Reason: "task " + reqCtx.TaskID + " already has an active execution",
			}
		}
		return nil, a2a.InternalError{Err: fmt.Errorf("create event queue: %w", err)}
	}

	manager, err := task.NewManager(task.ManagerConfig{
		TaskID:         reqCtx.TaskID,
		ContextID:      reqCtx.ContextID,
		Store:          h.store,
		InitialMessage: reqCtx.Message,
		StatusListener: h.pushStatus,
		Logger:         h.logger,
	})
	if err != nil {
		return nil, a2a.InternalError{Err: err}
	}

	execCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	h.mu.Lock()
	h.running[reqCtx.TaskID] = &runningTask{cancel: cancel, queue: queue, manager: manager}
	h.mu.Unlock()

	go func() {
		defer queue.Close()
		defer func() {
			if r := recover(); r != nil {
				h.logger.ErrorContext(execCtx, "agent execution panicked",
					"task_id", reqCtx.TaskID, "panic", r)
				h.publishFailure(execCtx, reqCtx, queue, fmt.Sprintf("agent panicked: %v", r))
			}
		}()
		if err := h.executor.Execute(execCtx, reqCtx, queue); err != nil {
			h.logger.ErrorContext(execCtx, "agent execution failed",
				"task_id", reqCtx.TaskID, "error", err)
			h.publishFailure(execCtx, reqCtx, queue, err.Error())
		}
	}()

	return &execution{reqCtx: reqCtx, queue: queue, manager: manager}, nil
}

// publishFailure enqueues a terminal failed status carrying the failure
// reason, so an executor error or panic still resolves the task.
func (h *DefaultRequestHandler) publishFailure(ctx context.Context, reqCtx *agent_execution.RequestContext, queue *event.EventQueue, reason string) {
	failed := a2a.NewStatusUpdateEvent(reqCtx.TaskID, reqCtx.ContextID, a2a.TaskStateFailed,
		a2a.NewAgentTextMessage(reason, reqCtx.ContextID, reqCtx.TaskID), true)
	if err := queue.Enqueue(ctx, failed); err != nil && !errors.Is(err, event.ErrQueueClosed) {
		h.logger.ErrorContext(ctx, "failed to publish failure event",
			"task_id", reqCtx.TaskID, "error", err)
	}
}

// finishExecution deregisters the task and, when finalize is set,
// guarantees it does not stay in a non-final state after the stream has
// ended. Streams answered by a direct message reply skip finalization so no
// task record is fabricated for them.
func (h *DefaultRequestHandler) finishExecution(ctx context.Context, execution *execution, finalize bool) {
	ctx = context.WithoutCancel(ctx)
	if finalize && !execution.manager.Terminal() {
		if err := execution.manager.Fail(ctx, "agent stopped without producing a result"); err != nil {
			h.logger.ErrorContext(ctx, "failed to finalize abandoned task",
				"task_id", execution.reqCtx.TaskID, "error", err)
		}
	}

	h.mu.Lock()
	rt := h.running[execution.reqCtx.TaskID]
	delete(h.running, execution.reqCtx.TaskID)
	h.mu.Unlock()
	if rt != nil {
		rt.cancel()
	}
	if err := h.queueManager.Close(execution.reqCtx.TaskID); err != nil {
		h.logger.WarnContext(ctx, "failed to close event queue",
			"task_id", execution.reqCtx.TaskID, "error", err)
	}
}

// pushStatus delivers a just-persisted task snapshot to registered
// webhooks. It is wired as the task manager's status listener, so every
// payload reflects state the store already holds, the terminal state
// included. Delivery is best effort.
func (h *DefaultRequestHandler) pushStatus(ctx context.Context, t *a2a.Task) {
	if h.notifier == nil {
		return
	}
	h.notifier.Notify(context.WithoutCancel(ctx), t)
}

// asProtocolError maps internal errors onto the protocol error taxonomy,
// wrapping anything unrecognized as an InternalError.
func (h *DefaultRequestHandler) asProtocolError(err error) error {
	var protocolErr a2a.ProtocolError
	if errors.As(err, &protocolErr) {
		return protocolErr
	}
	var configNotFound task.PushConfigNotFoundError
	if errors.As(err, &configNotFound) {
		return a2a.InvalidRequestError{Reason: configNotFound.Error()}
	}
	return a2a.InternalError{Err: err}
}

func historyLength(params *a2a.MessageSendParams) *int {
	if params.Configuration == nil {
		return nil
	}
	return params.Configuration.HistoryLength
}

func truncated(t *a2a.Task, length *int) *a2a.Task {
	if length == nil {
		return t
	}
	return t.TruncatedHistory(*length)
}
