package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/hookroom/webhook-gateway/internal/webhook_service/adapters/chat"
	"github.com/hookroom/webhook-gateway/internal/webhook_service/domain"
	"github.com/hookroom/webhook-gateway/internal/webhook_service/repository"
	"github.com/hookroom/webhook-gateway/internal/webhook_service/template"
)

// maxResponseBodySize caps how much of a webhook response is read back.
const maxResponseBodySize = 64 * 1024

// DispatcherOptions carries the delivery policy, built once from
// configuration at startup.
type DispatcherOptions struct {
	UserAgent        string
	ResponseTemplate string
	Timeout          time.Duration
	MaxRetries       int
	// BaseBackoff is the first retry delay; it doubles per attempt.
	// Zero means one second.
	BaseBackoff time.Duration
	// HTTPClient overrides the default client (tests). Nil builds one from
	// Timeout.
	HTTPClient *http.Client
}

// DeliveryAttempt is the ephemeral per-dispatch state of one delivery. It is
// created when a dispatch fans out and discarded on terminal success or
// failure; nothing about it is persisted.
type DeliveryAttempt struct {
	URL       string
	Payload   []byte
	Attempt   int
	NextDelay time.Duration
}

// Dispatcher turns one chat event into concurrent webhook deliveries.
type Dispatcher struct {
	outgoingRepo    repository.OutgoingRepository
	chatClient      chat.Client
	renderer        *template.Renderer
	defaultTemplate *template.Template
	httpClient      *http.Client
	opts            DispatcherOptions
	logger          *slog.Logger
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(
	outgoingRepo repository.OutgoingRepository,
	chatClient chat.Client,
	renderer *template.Renderer,
	defaultTemplate *template.Template,
	opts DispatcherOptions,
	logger *slog.Logger,
) *Dispatcher {
	if opts.BaseBackoff <= 0 {
		opts.BaseBackoff = time.Second
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}
	return &Dispatcher{
		outgoingRepo:    outgoingRepo,
		chatClient:      chatClient,
		renderer:        renderer,
		defaultTemplate: defaultTemplate,
		httpClient:      httpClient,
		opts:            opts,
		logger:          logger.With("component", "dispatcher"),
	}
}

// Dispatch delivers the event to every enabled registration in its room.
// Deliveries run concurrently and independently: one registration's failure
// never reaches its siblings, and failures are reported through logs and
// metrics, not returned. Dispatch blocks until all deliveries are terminal
// so the caller's context bounds the whole fan-out.
func (d *Dispatcher) Dispatch(ctx context.Context, evt domain.MessageEvent) error {
	regs, err := d.outgoingRepo.ListByRoom(ctx, evt.RoomID)
	if err != nil {
		return fmt.Errorf("failed to list registrations for room %s: %w", evt.RoomID, err)
	}

	var wg sync.WaitGroup
	for _, reg := range regs {
		if !reg.Enabled {
			continue
		}
		payload, err := json.Marshal(d.renderer.Render(d.effectiveTemplate(reg), evt))
		if err != nil {
			d.logger.ErrorContext(ctx, "Failed to marshal rendered payload",
				"registration_id", reg.ID, "error", err)
			continue
		}
		wg.Add(1)
		go func(reg *domain.OutgoingRegistration, payload []byte) {
			defer wg.Done()
			d.deliver(ctx, reg, payload)
		}(reg, payload)
	}
	wg.Wait()
	return nil
}

// effectiveTemplate picks the registration's override when present. A stored
// override that no longer parses falls back to the global default so the
// delivery still happens.
func (d *Dispatcher) effectiveTemplate(reg *domain.OutgoingRegistration) *template.Template {
	if reg.Template == nil {
		return d.defaultTemplate
	}
	tmpl, err := template.Parse(*reg.Template)
	if err != nil {
		d.logger.Warn("Stored registration template is malformed, using default",
			"registration_id", reg.ID, "error", err)
		return d.defaultTemplate
	}
	return tmpl
}

// deliver runs one registration's retry sequence: attempts are strictly
// sequential, backoff doubles each time, and cancellation is honored at
// backoff boundaries.
func (d *Dispatcher) deliver(ctx context.Context, reg *domain.OutgoingRegistration, payload []byte) {
	logger := d.logger.With("registration_id", reg.ID, "url", reg.WebhookURL)
	started := time.Now()

	attempt := DeliveryAttempt{
		URL:       reg.WebhookURL,
		Payload:   payload,
		NextDelay: d.opts.BaseBackoff,
	}

	for ; attempt.Attempt <= d.opts.MaxRetries; attempt.Attempt++ {
		if attempt.Attempt > 0 {
			timer := time.NewTimer(attempt.NextDelay)
			select {
			case <-ctx.Done():
				timer.Stop()
				logger.InfoContext(ctx, "Delivery aborted during backoff", "attempt", attempt.Attempt)
				deliveriesCounter.WithLabelValues("aborted").Inc()
				deliveryDurationHist.WithLabelValues("aborted").Observe(time.Since(started).Seconds())
				return
			case <-timer.C:
			}
			attempt.NextDelay *= 2
		}

		status, respBody, err := d.post(ctx, attempt.URL, attempt.Payload)
		if err != nil {
			deliveryAttemptsCounter.WithLabelValues("transport_error").Inc()
			logger.WarnContext(ctx, "Webhook delivery transport error",
				"attempt", attempt.Attempt+1, "error", err)
			if ctx.Err() != nil {
				deliveriesCounter.WithLabelValues("aborted").Inc()
				deliveryDurationHist.WithLabelValues("aborted").Observe(time.Since(started).Seconds())
				return
			}
			continue
		}
		if status < 200 || status > 299 {
			deliveryAttemptsCounter.WithLabelValues("http_error").Inc()
			logger.WarnContext(ctx, "Webhook returned non-2xx status",
				"attempt", attempt.Attempt+1, "status", status)
			continue
		}

		deliveryAttemptsCounter.WithLabelValues("ok").Inc()
		deliveriesCounter.WithLabelValues("success").Inc()
		deliveryDurationHist.WithLabelValues("success").Observe(time.Since(started).Seconds())
		logger.DebugContext(ctx, "Webhook delivered", "attempt", attempt.Attempt+1, "status", status)
		d.relayResponse(ctx, reg, respBody)
		return
	}

	deliveriesCounter.WithLabelValues("failure").Inc()
	deliveryDurationHist.WithLabelValues("failure").Observe(time.Since(started).Seconds())
	logger.ErrorContext(ctx, "Webhook delivery failed after all retries",
		"attempts", d.opts.MaxRetries+1)
}

func (d *Dispatcher) post(ctx context.Context, url string, payload []byte) (int, []byte, error) {
	reqCtx := ctx
	if d.opts.Timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, d.opts.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return 0, nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", d.opts.UserAgent)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		// The POST landed; a broken response stream only costs the relay.
		return resp.StatusCode, nil, nil
	}
	return resp.StatusCode, body, nil
}

// relayResponse sends a webhook's "response" field back into the originating
// room. Non-JSON bodies and bodies without a string response field mean
// there is nothing to relay; they are not errors.
func (d *Dispatcher) relayResponse(ctx context.Context, reg *domain.OutgoingRegistration, respBody []byte) {
	if len(respBody) == 0 {
		return
	}
	var parsed map[string]any
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return
	}
	response, ok := parsed["response"].(string)
	if !ok || strings.TrimSpace(response) == "" {
		return
	}

	rendered := strings.ReplaceAll(d.opts.ResponseTemplate, "{response}", strings.TrimSpace(response))
	if err := d.chatClient.SendMessage(ctx, reg.RoomID, rendered, ""); err != nil {
		d.logger.ErrorContext(ctx, "Failed to relay webhook response to room",
			"registration_id", reg.ID, "room_id", reg.RoomID, "error", err)
		return
	}
	responsesRelayedCounter.Inc()
}
