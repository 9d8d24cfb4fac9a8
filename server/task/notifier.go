// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package task

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-json-experiment/json"
	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"

	a2a "github.com/go-a2a/a2a-core"
)

const (
	// notificationTokenHeader carries the caller-supplied token so the
	// receiving webhook can correlate the notification.
	notificationTokenHeader = "X-A2A-Notification-Token"

	defaultNotifyRetries = 2
	defaultNotifyBackoff = 500 * time.Millisecond
	defaultNotifyTimeout = 10 * time.Second
)

// PushNotifier delivers task state snapshots to registered webhook URLs.
// Delivery is best effort: failures are retried a bounded number of times
// with backoff, then logged and dropped. A notification failure never
// affects the task lifecycle.
type PushNotifier struct {
	client  *http.Client
	store   PushConfigStore
	logger  *slog.Logger
	retries int
	backoff time.Duration

	// signingKey, when set, is used to sign a JWT attached to each
	// notification so receivers can authenticate the sender.
	signingKey jwk.Key
}

// PushNotifierOption configures a PushNotifier.
type PushNotifierOption func(*PushNotifier)

// WithHTTPClient sets the HTTP client used for webhook delivery.
func WithHTTPClient(client *http.Client) PushNotifierOption {
	return func(n *PushNotifier) {
		n.client = client
	}
}

// WithRetries sets how many times a failed delivery is retried.
func WithRetries(retries int) PushNotifierOption {
	return func(n *PushNotifier) {
		n.retries = retries
	}
}

// WithBackoff sets the delay between delivery attempts.
func WithBackoff(backoff time.Duration) PushNotifierOption {
	return func(n *PushNotifier) {
		n.backoff = backoff
	}
}

// WithSigningKey enables JWT signing of notifications with the given RSA
// private key.
func WithSigningKey(key jwk.Key) PushNotifierOption {
	return func(n *PushNotifier) {
		n.signingKey = key
	}
}

// WithNotifierLogger sets the logger used for delivery failures.
func WithNotifierLogger(logger *slog.Logger) PushNotifierOption {
	return func(n *PushNotifier) {
		n.logger = logger
	}
}

// NewPushNotifier creates a PushNotifier reading webhook targets from store.
func NewPushNotifier(store PushConfigStore, opts ...PushNotifierOption) (*PushNotifier, error) {
	if store == nil {
		return nil, fmt.Errorf("push config store cannot be nil")
	}

	n := &PushNotifier{
		client:  &http.Client{Timeout: defaultNotifyTimeout},
		store:   store,
		logger:  slog.Default(),
		retries: defaultNotifyRetries,
		backoff: defaultNotifyBackoff,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n, nil
}

// Notify sends the task snapshot to every webhook registered for the task.
// It returns once all deliveries have been attempted; individual failures
// are logged, not returned.
func (n *PushNotifier) Notify(ctx context.Context, task *a2a.Task) {
	if task == nil {
		return
	}

	configs, err := n.store.List(ctx, task.ID)
	if err != nil {
		n.logger.ErrorContext(ctx, "failed to list push notification configs",
			"task_id", task.ID, "error", err)
		return
	}
	if len(configs) == 0 {
		return
	}

	body, err := json.Marshal(task)
	if err != nil {
		n.logger.ErrorContext(ctx, "failed to marshal task for push notification",
			"task_id", task.ID, "error", err)
		return
	}

	for _, config := range configs {
		if err := n.deliver(ctx, config, body); err != nil {
			n.logger.WarnContext(ctx, "push notification delivery failed",
				"task_id", task.ID,
				"url", config.URL,
				"error", err)
		}
	}
}

func (n *PushNotifier) deliver(ctx context.Context, config *a2a.PushNotificationConfig, body []byte) error {
	var lastErr error
	for attempt := 0; attempt <= n.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(n.backoff * time.Duration(attempt)):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if lastErr = n.post(ctx, config, body); lastErr == nil {
			return nil
		}
	}
	return lastErr
}

func (n *PushNotifier) post(ctx context.Context, config *a2a.PushNotificationConfig, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, config.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if config.Token != "" {
		req.Header.Set(notificationTokenHeader, config.Token)
	}
	if err := n.authorize(req, config, body); err != nil {
		return err
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("post notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notification endpoint returned %s", resp.Status)
	}
	return nil
}

// authorize attaches credentials to the request: the receiver-declared
// authentication scheme when one is configured, otherwise a signed JWT when
// a signing key is available.
func (n *PushNotifier) authorize(req *http.Request, config *a2a.PushNotificationConfig, body []byte) error {
	if auth := config.Authentication; auth != nil && len(auth.Schemes) > 0 {
		switch auth.Schemes[0] {
		case "bearer":
			req.Header.Set("Authorization", "Bearer "+auth.Credentials)
		case "apikey":
			req.Header.Set("X-Api-Key", auth.Credentials)
		default:
			return fmt.Errorf("unsupported authentication scheme %q", auth.Schemes[0])
		}
		return nil
	}

	if n.signingKey == nil {
		return nil
	}

	digest := sha256.Sum256(body)
	token, err := jwt.NewBuilder().
		IssuedAt(time.Now().UTC()).
		Claim("request_body_sha256", hex.EncodeToString(digest[:])).
		Build()
	if err != nil {
		return fmt.Errorf("build notification token: %w", err)
	}
	signed, err := jwt.Sign(token, jwt.WithKey(jwa.RS256(), n.signingKey))
	if err != nil {
		return fmt.Errorf("sign notification token: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+string(signed))
	return nil
}
