package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"tag-wallet/internal/core/domain"
	"tag-wallet/internal/core/ports"
	"tag-wallet/internal/service"

	"github.com/rs/zerolog"
)

// Headers set on every webhook delivery.
const (
	HeaderSignature = "X-Signature"
	HeaderTimestamp = "X-Timestamp"
)

// DefaultRetryIntervals is the wait before each retry after the first attempt.
var DefaultRetryIntervals = []time.Duration{
	15 * time.Second,
	time.Minute,
	5 * time.Minute,
}

// HTTPClient interface for testability.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// WebhookNotifier posts outcome events to a back-office URL asynchronously,
// signed with HMAC-SHA256 over "<timestamp>.<body>".
type WebhookNotifier struct {
	url        string
	secret     string
	terminalID string
	retries    []time.Duration
	sigSvc     ports.SignatureService
	httpClient HTTPClient
	log        zerolog.Logger

	mu     sync.Mutex // orders enqueue against Close
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// NewWebhookNotifier creates a WebhookNotifier. A nil retries slice uses
// DefaultRetryIntervals.
func NewWebhookNotifier(
	url, secret, terminalID string,
	retries []time.Duration,
	sigSvc ports.SignatureService,
	httpClient HTTPClient,
	log zerolog.Logger,
) *WebhookNotifier {
	if retries == nil {
		retries = DefaultRetryIntervals
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &WebhookNotifier{
		url:        url,
		secret:     secret,
		terminalID: terminalID,
		retries:    retries,
		sigSvc:     sigSvc,
		httpClient: httpClient,
		log:        log,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// OnTagAccepted implements ports.SessionNotifier.
func (n *WebhookNotifier) OnTagAccepted(_ context.Context, o *domain.Outcome) {
	n.enqueue(AcceptedEvent(n.terminalID, o))
}

// OnTagRejected implements ports.SessionNotifier.
func (n *WebhookNotifier) OnTagRejected(_ context.Context, r *domain.Rejection) {
	n.enqueue(RejectedEvent(n.terminalID, r))
}

// Close abandons pending retries and waits for in-flight deliveries. Events
// arriving after Close are dropped.
func (n *WebhookNotifier) Close() {
	n.mu.Lock()
	n.cancel()
	n.mu.Unlock()
	n.wg.Wait()
}

// Wait blocks until every queued delivery has finished.
func (n *WebhookNotifier) Wait() {
	n.wg.Wait()
}

func (n *WebhookNotifier) enqueue(ev Event) {
	body, err := json.Marshal(ev)
	if err != nil {
		n.log.Error().Err(err).Str("session_id", ev.SessionID).Msg("webhook: failed to marshal event")
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.ctx.Err() != nil {
		n.log.Warn().Str("session_id", ev.SessionID).Msg("webhook: notifier closed, event dropped")
		return
	}
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		n.deliverWithRetries(body, ev.SessionID)
	}()
}

func (n *WebhookNotifier) deliverWithRetries(body []byte, sessionID string) {
	for attempt := 0; attempt <= len(n.retries); attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(n.retries[attempt-1]):
			case <-n.ctx.Done():
				n.log.Warn().Str("session_id", sessionID).Int("attempt", attempt).Msg("webhook: shutting down, delivery abandoned")
				return
			}
		}

		status, err := n.deliver(body)
		if err != nil {
			n.log.Warn().Err(err).Str("session_id", sessionID).Int("attempt", attempt+1).Msg("webhook: delivery failed")
			continue
		}
		if status >= 200 && status < 300 {
			n.log.Info().Str("session_id", sessionID).Int("attempt", attempt+1).Int("status", status).Msg("webhook: delivered successfully")
			return
		}
		n.log.Warn().Str("session_id", sessionID).Int("attempt", attempt+1).Int("status", status).Msg("webhook: non-2xx response, retrying")
	}

	n.log.Error().Str("session_id", sessionID).Msg("webhook: all retry attempts exhausted")
}

func (n *WebhookNotifier) deliver(body []byte) (int, error) {
	ts := time.Now().Unix()
	req, err := http.NewRequestWithContext(n.ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderTimestamp, strconv.FormatInt(ts, 10))
	req.Header.Set(HeaderSignature, n.sigSvc.Sign(n.secret, service.DeliveryPayload(ts, body)))

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	resp.Body.Close()
	return resp.StatusCode, nil
}
