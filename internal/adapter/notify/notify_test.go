package notify_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"tag-wallet/internal/adapter/notify"
	"tag-wallet/internal/core/domain"
	"tag-wallet/internal/core/ports/mocks"
	"tag-wallet/internal/service"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func acceptedOutcome() *domain.Outcome {
	id := uuid.New()
	return &domain.Outcome{
		SessionID: id,
		Customer:  &domain.Customer{ID: []byte{0xab, 0xcd}, Balance: 700},
		Receipt: &domain.Receipt{
			SessionID:  id,
			Kind:       domain.OperationPurchase,
			Items:      []domain.LineItem{{ProductID: 1, Quantity: 2, UnitPrice: 150}},
			Total:      300,
			Balance:    700,
			Generation: 5,
			CreatedAt:  time.Now().UTC(),
		},
	}
}

func rejection() *domain.Rejection {
	return &domain.Rejection{
		SessionID: uuid.New(),
		Operation: domain.OperationPurchase,
		Reason:    domain.RejectInsufficientBalance,
		Shortfall: 120,
		Balance:   80,
		Cause:     errors.New("balance 80 below 200"),
	}
}

type countingNotifier struct {
	accepted, rejected int
}

func (c *countingNotifier) OnTagAccepted(context.Context, *domain.Outcome)   { c.accepted++ }
func (c *countingNotifier) OnTagRejected(context.Context, *domain.Rejection) { c.rejected++ }

func TestMulti_FansOut(t *testing.T) {
	a, b := &countingNotifier{}, &countingNotifier{}
	m := notify.Multi{a, b, notify.NewLogNotifier(zerolog.Nop())}

	m.OnTagAccepted(context.Background(), acceptedOutcome())
	m.OnTagRejected(context.Background(), rejection())

	assert.Equal(t, 1, a.accepted)
	assert.Equal(t, 1, b.accepted)
	assert.Equal(t, 1, a.rejected)
	assert.Equal(t, 1, b.rejected)
}

func TestEvents(t *testing.T) {
	o := acceptedOutcome()
	ev := notify.AcceptedEvent("term-1", o)
	assert.Equal(t, notify.EventTagAccepted, ev.EventType)
	assert.Equal(t, "term-1", ev.TerminalID)
	assert.Equal(t, o.SessionID.String(), ev.SessionID)
	assert.Equal(t, uint64(300), ev.Total)
	assert.Equal(t, uint32(5), ev.Generation)

	body, err := json.Marshal(ev)
	require.NoError(t, err)
	assert.NotContains(t, string(body), "abcd", "identity must not leave the terminal")

	r := rejection()
	rev := notify.RejectedEvent("term-1", r)
	assert.Equal(t, notify.EventTagRejected, rev.EventType)
	assert.Equal(t, domain.RejectInsufficientBalance, rev.Reason)
	assert.Equal(t, uint64(120), rev.Shortfall)
	assert.Equal(t, uint64(80), rev.Balance)
}

func TestJournalNotifier_Accepted(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockJournalRepository(ctrl)
	enc := mocks.NewMockEncryptionService(ctrl)
	o := acceptedOutcome()

	enc.EXPECT().Encrypt("abcd").Return("sealed", nil)
	repo.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, e *domain.JournalEntry) error {
			assert.Equal(t, o.SessionID, e.SessionID)
			assert.Equal(t, domain.JournalStatusAccepted, e.Status)
			assert.Equal(t, domain.OperationPurchase, e.Operation)
			assert.Equal(t, "sealed", e.IdentityEncrypted)
			assert.Equal(t, int64(300), e.Total)
			assert.Equal(t, int64(700), e.Balance)
			assert.Equal(t, int64(5), e.Generation)
			assert.Nil(t, e.Reason)
			return nil
		})

	notify.NewJournalNotifier(repo, enc, zerolog.Nop()).OnTagAccepted(context.Background(), o)
}

func TestJournalNotifier_Rejected(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockJournalRepository(ctrl)
	enc := mocks.NewMockEncryptionService(ctrl)
	r := rejection()

	repo.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, e *domain.JournalEntry) error {
			assert.Equal(t, domain.JournalStatusRejected, e.Status)
			assert.Empty(t, e.IdentityEncrypted)
			require.NotNil(t, e.Reason)
			assert.Equal(t, "INSUFFICIENT_BALANCE", *e.Reason)
			return nil
		})

	notify.NewJournalNotifier(repo, enc, zerolog.Nop()).OnTagRejected(context.Background(), r)
}

func TestJournalNotifier_PersistsAfterCancel(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockJournalRepository(ctrl)
	enc := mocks.NewMockEncryptionService(ctrl)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	repo.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, _ *domain.JournalEntry) error {
			assert.NoError(t, ctx.Err(), "journal write must outlive the request")
			return nil
		})

	notify.NewJournalNotifier(repo, enc, zerolog.Nop()).OnTagRejected(ctx, rejection())
}

func TestJournalNotifier_EncryptFailureSkipsWrite(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockJournalRepository(ctrl)
	enc := mocks.NewMockEncryptionService(ctrl)

	enc.EXPECT().Encrypt(gomock.Any()).Return("", errors.New("bad key"))
	repo.EXPECT().Create(gomock.Any(), gomock.Any()).Times(0)

	notify.NewJournalNotifier(repo, enc, zerolog.Nop()).OnTagAccepted(context.Background(), acceptedOutcome())
}

func TestWebhookNotifier_SignsAndDelivers(t *testing.T) {
	sig := service.NewHMACSignatureService()
	var (
		mu   sync.Mutex
		got  notify.Event
		hdrs http.Header
		raw  []byte
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		defer mu.Unlock()
		raw = body
		hdrs = r.Header.Clone()
		_ = json.Unmarshal(body, &got)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := notify.NewWebhookNotifier(srv.URL, "whsec", "term-1", []time.Duration{}, sig, srv.Client(), zerolog.Nop())
	o := acceptedOutcome()
	n.OnTagAccepted(context.Background(), o)
	n.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, notify.EventTagAccepted, got.EventType)
	assert.Equal(t, o.SessionID.String(), got.SessionID)

	ts, err := strconv.ParseInt(hdrs.Get(notify.HeaderTimestamp), 10, 64)
	require.NoError(t, err)
	assert.True(t, sig.Verify("whsec", service.DeliveryPayload(ts, raw), hdrs.Get(notify.HeaderSignature)))
}

func TestWebhookNotifier_RetriesUntilSuccess(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	retries := []time.Duration{time.Millisecond, time.Millisecond, time.Millisecond}
	n := notify.NewWebhookNotifier(srv.URL, "whsec", "term-1", retries, service.NewHMACSignatureService(), srv.Client(), zerolog.Nop())
	n.OnTagRejected(context.Background(), rejection())
	n.Wait()

	assert.Equal(t, int32(3), calls.Load())
}

func TestWebhookNotifier_GivesUp(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	retries := []time.Duration{time.Millisecond}
	n := notify.NewWebhookNotifier(srv.URL, "whsec", "term-1", retries, service.NewHMACSignatureService(), srv.Client(), zerolog.Nop())
	n.OnTagAccepted(context.Background(), acceptedOutcome())
	n.Wait()

	assert.Equal(t, int32(2), calls.Load())
}

func TestWebhookNotifier_CloseAbandonsRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	n := notify.NewWebhookNotifier(srv.URL, "whsec", "term-1", []time.Duration{time.Hour}, service.NewHMACSignatureService(), srv.Client(), zerolog.Nop())
	n.OnTagAccepted(context.Background(), acceptedOutcome())

	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	done := make(chan struct{})
	go func() {
		n.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Close did not return")
	}
	assert.Equal(t, int32(1), calls.Load())
}

func TestWebhookNotifier_DropsEventsAfterClose(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := notify.NewWebhookNotifier(srv.URL, "whsec", "term-1", []time.Duration{}, service.NewHMACSignatureService(), srv.Client(), zerolog.Nop())
	n.Close()

	n.OnTagAccepted(context.Background(), acceptedOutcome())
	n.OnTagRejected(context.Background(), rejection())
	n.Wait()
	assert.Zero(t, calls.Load())
}

func TestWebhookNotifier_CloseWhileNotifying(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := notify.NewWebhookNotifier(srv.URL, "whsec", "term-1", []time.Duration{}, service.NewHMACSignatureService(), srv.Client(), zerolog.Nop())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				n.OnTagAccepted(context.Background(), acceptedOutcome())
			}
		}()
	}
	n.Close()
	wg.Wait()
	n.Wait()
}

type fakeWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, msgs...)
	return f.err
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestKafkaPublisher(t *testing.T) {
	w := &fakeWriter{}
	p := notify.NewKafkaPublisher(w, "term-1", zerolog.Nop())

	o := acceptedOutcome()
	p.OnTagAccepted(context.Background(), o)
	p.OnTagRejected(context.Background(), rejection())
	require.NoError(t, p.Close())

	require.Len(t, w.msgs, 2)
	assert.Equal(t, []byte(o.SessionID.String()), w.msgs[0].Key)

	var ev notify.Event
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &ev))
	assert.Equal(t, notify.EventTagAccepted, ev.EventType)
	assert.Equal(t, "event_type", w.msgs[1].Headers[0].Key)
	assert.Equal(t, notify.EventTagRejected, string(w.msgs[1].Headers[0].Value))
	assert.True(t, w.closed)
}

func TestKafkaPublisher_WriteErrorIsSwallowed(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker down")}
	p := notify.NewKafkaPublisher(w, "term-1", zerolog.Nop())

	assert.NotPanics(t, func() { p.OnTagAccepted(context.Background(), acceptedOutcome()) })
	assert.Len(t, w.msgs, 1)
}

func TestNewKafkaWriter(t *testing.T) {
	w := notify.NewKafkaWriter([]string{"localhost:9092"}, "tag-wallet.outcomes", zerolog.Nop())
	assert.Equal(t, "tag-wallet.outcomes", w.Topic)
	assert.True(t, w.Async)
}
