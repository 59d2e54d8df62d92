package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"tag-wallet/internal/core/domain"
	"tag-wallet/internal/core/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// SessionConfig bounds the hardware side of a session.
type SessionConfig struct {
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Capacity     int  // max envelope bytes the tag can store; 0 = unchecked
	VerifyWrite  bool // read the tag back after writing and compare
}

// SessionController drives one discovery-read-mutate-write cycle per tag
// event. Only one session runs at a time; a discovery that arrives while a
// session is in progress is refused with domain.ErrSessionBusy.
type SessionController struct {
	codec    *LedgerCodec
	guard    *IntegrityGuard
	engine   *TransactionEngine
	tracker  ports.GenerationTracker
	notifier ports.SessionNotifier
	cfg      SessionConfig
	log      zerolog.Logger
	now      func() time.Time

	active sync.Mutex // held for the whole of HandleTag

	mu      sync.Mutex
	armed   *domain.Operation
	last    *domain.Outcome
	machine *domain.SessionMachine
}

// NewSessionController creates a new SessionController.
func NewSessionController(
	codec *LedgerCodec,
	guard *IntegrityGuard,
	engine *TransactionEngine,
	tracker ports.GenerationTracker,
	notifier ports.SessionNotifier,
	cfg SessionConfig,
	log zerolog.Logger,
) *SessionController {
	return &SessionController{
		codec:    codec,
		guard:    guard,
		engine:   engine,
		tracker:  tracker,
		notifier: notifier,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
		machine:  domain.NewSessionMachine(),
	}
}

// Arm sets the operation the next presented tag will receive. Erase and
// issue need a supervisor authorization.
func (s *SessionController) Arm(op domain.Operation) error {
	switch op.Kind {
	case domain.OperationPurchase:
		if _, err := domain.Total(op.Items); err != nil {
			return err
		}
		if len(op.Items) == 0 {
			return fmt.Errorf("%w: empty purchase", domain.ErrInvalidQuantity)
		}
	case domain.OperationRecharge, domain.OperationInspect:
	case domain.OperationErase, domain.OperationIssue:
		if !op.Auth.IsSupervisor() {
			return fmt.Errorf("%w: %s requires supervisor", domain.ErrUnauthorized, op.Kind)
		}
	default:
		return fmt.Errorf("unsupported operation %q", op.Kind)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.armed = &op
	return nil
}

// Disarm clears any pending operation.
func (s *SessionController) Disarm() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.armed = nil
}

// Armed returns the pending operation, if any.
func (s *SessionController) Armed() (domain.Operation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.armed == nil {
		return domain.Operation{}, false
	}
	return *s.armed, true
}

// State returns the state of the current session.
func (s *SessionController) State() domain.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.State()
}

// LastOutcome returns the outcome of the most recent session.
func (s *SessionController) LastOutcome() *domain.Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// HandleTag runs a full session against the tag in the reader's field. It
// returns an error only when no session was started (busy, nothing armed);
// every started session ends in an Outcome that was also delivered to the
// notifier.
func (s *SessionController) HandleTag(ctx context.Context, device ports.TagDevice) (*domain.Outcome, error) {
	if !s.active.TryLock() {
		return nil, domain.ErrSessionBusy
	}
	defer s.active.Unlock()

	// armed is compared by pointer when the session ends: an operation armed
	// while this session ran is a different pointer and survives.
	s.mu.Lock()
	armed := s.armed
	s.mu.Unlock()
	if armed == nil {
		return nil, domain.ErrNoOperationArmed
	}
	op := *armed

	sess := &session{
		id:  uuid.New(),
		op:  op,
		dev: device,
	}
	sess.log = s.log.With().
		Str("session_id", sess.id.String()).
		Str("operation", string(op.Kind)).
		Logger()

	defer s.transition(domain.SessionIdle)
	s.transition(domain.SessionDiscovered)

	outcome := s.run(ctx, sess)

	s.mu.Lock()
	s.last = outcome
	if s.armed == armed && (outcome.Accepted() || outcome.Rejection.Consumes()) {
		s.armed = nil
	}
	s.mu.Unlock()

	if outcome.Accepted() {
		sess.log.Info().
			Str("identity", outcome.Customer.IdentityHex()).
			Uint64("total", outcome.Receipt.Total).
			Uint64("balance", outcome.Receipt.Balance).
			Uint32("generation", outcome.Receipt.Generation).
			Msg("tag session accepted")
		s.notifier.OnTagAccepted(ctx, outcome)
	} else {
		s.notifier.OnTagRejected(ctx, outcome.Rejection)
	}
	return outcome, nil
}

type session struct {
	id  uuid.UUID
	op  domain.Operation
	dev ports.TagDevice
	log zerolog.Logger
}

func (s *SessionController) run(ctx context.Context, sess *session) *domain.Outcome {
	raw, err := s.read(ctx, sess.dev)
	if err != nil {
		return s.reject(sess, domain.RejectHardwareError, err)
	}
	s.transition(domain.SessionRead)

	var (
		current *domain.Customer
		next    *domain.Customer
		receipt *domain.Receipt
		prevGen uint32
	)

	if sess.op.Kind == domain.OperationIssue {
		if !isBlank(raw) {
			return s.reject(sess, domain.RejectInvalidTag, domain.ErrTagNotBlank)
		}
		s.transition(domain.SessionVerified)
		next, receipt, err = s.engine.Issue(sess.op.Auth)
		if err != nil {
			return s.reject(sess, domain.RejectInvalidTag, err)
		}
	} else {
		current, prevGen, err = s.verify(ctx, raw)
		if err != nil {
			reason := domain.RejectInvalidTag
			if errors.Is(err, errTrackerUnavailable) {
				reason = domain.RejectHardwareError
			}
			return s.reject(sess, reason, err)
		}
		s.transition(domain.SessionVerified)

		if !sess.op.Mutates() {
			_, receipt, _ = s.engine.Apply(current, sess.op)
			receipt.SessionID = sess.id
			receipt.Generation = prevGen
			receipt.CreatedAt = s.now().UTC()
			return &domain.Outcome{SessionID: sess.id, Customer: current, Receipt: receipt}
		}

		next, receipt, err = s.engine.Apply(current, sess.op)
		if err != nil {
			var short *domain.InsufficientBalanceError
			if errors.As(err, &short) {
				rej := s.reject(sess, domain.RejectInsufficientBalance, err)
				rej.Rejection.Shortfall = short.Shortfall
				rej.Rejection.Balance = short.Balance
				return rej
			}
			return s.reject(sess, domain.RejectInvalidTag, err)
		}
	}
	s.transition(domain.SessionMutated)

	record, err := s.codec.Encode(next)
	if err != nil {
		return s.reject(sess, domain.RejectInvalidTag, err)
	}
	envelope, err := s.guard.Seal(record, prevGen)
	if err != nil {
		return s.reject(sess, domain.RejectInvalidTag, err)
	}
	if s.cfg.Capacity > 0 && len(envelope) > s.cfg.Capacity {
		return s.reject(sess, domain.RejectTagFull,
			fmt.Errorf("%w: %d > %d bytes", domain.ErrCapacityExceeded, len(envelope), s.cfg.Capacity))
	}

	if err := s.write(ctx, sess.dev, envelope); err != nil {
		rej := s.reject(sess, domain.RejectHardwareError, err)
		rej.Rejection.RereadRequired = true
		return rej
	}
	if s.cfg.VerifyWrite {
		back, err := s.read(ctx, sess.dev)
		if err == nil && !bytes.Equal(back, envelope) {
			err = fmt.Errorf("%w: read-back mismatch", domain.ErrHardwareIO)
		}
		if err != nil {
			rej := s.reject(sess, domain.RejectHardwareError, err)
			rej.Rejection.RereadRequired = true
			return rej
		}
	}
	s.transition(domain.SessionWritten)

	// Our write supersedes prevGen; a later presentation of it is a replay.
	if err := s.tracker.Advance(ctx, next.ID, prevGen); err != nil {
		sess.log.Warn().Err(err).Msg("failed to record superseded generation")
	}

	receipt.SessionID = sess.id
	receipt.Generation = prevGen + 1
	receipt.CreatedAt = s.now().UTC()
	return &domain.Outcome{SessionID: sess.id, Customer: next, Receipt: receipt}
}

var errTrackerUnavailable = errors.New("generation tracker unavailable")

// verify opens and decodes raw tag bytes and checks the generation against
// the tracker. It returns the record and its generation.
func (s *SessionController) verify(ctx context.Context, raw []byte) (*domain.Customer, uint32, error) {
	record, gen, err := s.guard.Open(raw, nil)
	if err != nil {
		return nil, 0, err
	}
	c, err := s.codec.Decode(record)
	if err != nil {
		return nil, 0, err
	}

	floor, ok, err := s.tracker.Floor(ctx, c.ID)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", errTrackerUnavailable, err)
	}
	if ok {
		if err := s.guard.CheckGeneration(gen, &floor); err != nil {
			return nil, 0, err
		}
	}
	// A tag at gen proves gen-1 was superseded.
	if gen > 1 && (!ok || gen-1 > floor) {
		if err := s.tracker.Advance(ctx, c.ID, gen-1); err != nil {
			s.log.Warn().Err(err).Msg("failed to record observed generation")
		}
	}
	return c, gen, nil
}

func (s *SessionController) reject(sess *session, reason domain.RejectReason, cause error) *domain.Outcome {
	sess.log.Warn().
		Err(cause).
		Str("reason", string(reason)).
		Str("state", string(s.State())).
		Msg("tag session rejected")
	return &domain.Outcome{
		SessionID: sess.id,
		Rejection: &domain.Rejection{
			SessionID: sess.id,
			Operation: sess.op.Kind,
			Reason:    reason,
			Cause:     cause,
		},
	}
}

func (s *SessionController) read(ctx context.Context, dev ports.TagDevice) ([]byte, error) {
	var out []byte
	err := bounded(ctx, s.cfg.ReadTimeout, func(ctx context.Context) error {
		b, err := dev.ReadBytes(ctx)
		out = b
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("reading tag: %w", err)
	}
	return out, nil
}

func (s *SessionController) write(ctx context.Context, dev ports.TagDevice, data []byte) error {
	err := bounded(ctx, s.cfg.WriteTimeout, func(ctx context.Context) error {
		return dev.WriteBytes(ctx, data)
	})
	if err != nil {
		return fmt.Errorf("writing tag: %w", err)
	}
	return nil
}

func (s *SessionController) transition(to domain.SessionState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if to == domain.SessionIdle {
		s.machine.Reset()
		return
	}
	if err := s.machine.Transition(to); err != nil {
		// Only reachable through a bug in run; the session still fails closed
		// because every mutating step is gated on the returned values.
		s.log.Error().Err(err).Msg("session state machine violated")
	}
}

// bounded runs fn with a deadline and returns when either fn finishes or
// the deadline passes, whichever is first. A device that ignores its
// context cannot hang the session.
func bounded(ctx context.Context, timeout time.Duration, fn func(context.Context) error) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	done := make(chan error, 1)
	go func() { done <- fn(ctx) }()

	select {
	case err := <-done:
		if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) && !errors.Is(err, domain.ErrHardwareIO) {
			return fmt.Errorf("%w: %v", domain.ErrTagTimeout, err)
		}
		if err != nil && !errors.Is(err, domain.ErrHardwareIO) {
			return fmt.Errorf("%w: %v", domain.ErrHardwareIO, err)
		}
		return err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return domain.ErrTagTimeout
		}
		return fmt.Errorf("%w: %v", domain.ErrTagRemoved, ctx.Err())
	}
}

// isBlank reports whether a tag carries no record at all.
func isBlank(raw []byte) bool {
	for _, b := range raw {
		if b != 0 {
			return false
		}
	}
	return true
}
