package broker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/rs/zerolog"
)

var (
	// ErrCodeReserved is returned when a pairing code is already held by a
	// live session.
	ErrCodeReserved = errors.New("pairing code is already reserved")

	// ErrCodeNotFound is returned when confirming a code that is unknown
	// or has expired.
	ErrCodeNotFound = errors.New("pairing code not found")
)

// ScreenCreator creates the permanent screen record during confirmation.
type ScreenCreator interface {
	CreateScreen(ctx context.Context, name, location string) (string, error)
}

// session is a live pairing reservation, keyed by its human code.
type session struct {
	tempDeviceID string
	deviceInfo   json.RawMessage
	expiresAt    time.Time
}

func (s session) expired(now time.Time) bool {
	return now.After(s.expiresAt)
}

// assignment is a confirmed pairing waiting to be picked up by the device,
// keyed by temp device id.
type assignment struct {
	screenID  string
	expiresAt time.Time
}

func (a assignment) expired(now time.Time) bool {
	return now.After(a.expiresAt)
}

// Broker holds the ephemeral, TTL-bound mapping between human codes,
// temporary device ids and eventual permanent screen ids.
type Broker struct {
	sessions    cmap.ConcurrentMap[string, session]    // code -> session
	assignments cmap.ConcurrentMap[string, assignment] // temp device id -> assignment

	screens       ScreenCreator
	assignmentTTL time.Duration
	logger        zerolog.Logger

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewBroker initializes a broker. assignmentTTL bounds how long a confirmed
// assignment waits for the device to poll it up.
func NewBroker(screens ScreenCreator, assignmentTTL time.Duration, logger zerolog.Logger) *Broker {
	return &Broker{
		sessions:      cmap.New[session](),
		assignments:   cmap.New[assignment](),
		screens:       screens,
		assignmentTTL: assignmentTTL,
		logger:        logger,
	}
}

// Register reserves code for tempDeviceID with set-if-absent semantics.
// A code held by a live session yields ErrCodeReserved; an expired holder is
// replaced.
func (b *Broker) Register(tempDeviceID, code string, ttl time.Duration, deviceInfo json.RawMessage) error {
	now := time.Now()
	next := session{
		tempDeviceID: tempDeviceID,
		deviceInfo:   deviceInfo,
		expiresAt:    now.Add(ttl),
	}

	if b.sessions.SetIfAbsent(code, next) {
		b.logger.Info().Str("code", code).Str("temp_device_id", tempDeviceID).Msg("Pairing code reserved")
		return nil
	}

	// The slot is taken. Drop it only if its holder expired, then retry
	// the insert exactly once.
	removed := b.sessions.RemoveCb(code, func(_ string, existing session, exists bool) bool {
		return exists && existing.expired(now)
	})
	if removed && b.sessions.SetIfAbsent(code, next) {
		b.logger.Info().Str("code", code).Str("temp_device_id", tempDeviceID).Msg("Pairing code reserved after expiry")
		return nil
	}

	return ErrCodeReserved
}

// Confirm binds a reserved code to a freshly created screen record and
// stores the assignment for the waiting device. Invoked by the operator
// path, never by the device.
func (b *Broker) Confirm(ctx context.Context, code, name, location string) (string, error) {
	now := time.Now()

	sess, ok := b.sessions.Get(code)
	if !ok || sess.expired(now) {
		return "", ErrCodeNotFound
	}

	screenID, err := b.screens.CreateScreen(ctx, name, location)
	if err != nil {
		return "", err
	}

	b.assignments.Set(sess.tempDeviceID, assignment{
		screenID:  screenID,
		expiresAt: now.Add(b.assignmentTTL),
	})
	b.sessions.Remove(code)

	b.logger.Info().
		Str("code", code).
		Str("temp_device_id", sess.tempDeviceID).
		Str("screen_id", screenID).
		Msg("Pairing confirmed")

	return screenID, nil
}

// Status reports whether an assignment exists for tempDeviceID. The record
// is deleted upon the first successful read, so a confirmation is delivered
// to at most one caller. A device that crashes between this read and
// persisting the id loses the assignment; the operator has to confirm a
// fresh code.
func (b *Broker) Status(tempDeviceID string) (string, bool) {
	a, ok := b.assignments.Pop(tempDeviceID)
	if !ok {
		return "", false
	}
	if a.expired(time.Now()) {
		return "", false
	}

	b.logger.Info().Str("temp_device_id", tempDeviceID).Str("screen_id", a.screenID).Msg("Pairing assignment delivered")
	return a.screenID, true
}

// Start launches the janitor that purges expired sessions and assignments.
func (b *Broker) Start(period time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.ctx != nil {
		return errors.New("broker janitor is already running")
	}

	b.ctx, b.cancel = context.WithCancel(context.Background())

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.runJanitor(period)
	}()

	return nil
}

// Stop terminates the janitor.
func (b *Broker) Stop() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.ctx == nil {
		return errors.New("broker janitor is not running")
	}

	b.cancel()
	b.wg.Wait()

	b.ctx = nil
	b.cancel = nil
	return nil
}

func (b *Broker) runJanitor(period time.Duration) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			b.sweep(time.Now())
		case <-b.ctx.Done():
			return
		}
	}
}

func (b *Broker) sweep(now time.Time) {
	for tuple := range b.sessions.IterBuffered() {
		if tuple.Val.expired(now) {
			b.sessions.RemoveCb(tuple.Key, func(_ string, v session, exists bool) bool {
				return exists && v.expired(now)
			})
		}
	}
	for tuple := range b.assignments.IterBuffered() {
		if tuple.Val.expired(now) {
			b.assignments.RemoveCb(tuple.Key, func(_ string, v assignment, exists bool) bool {
				return exists && v.expired(now)
			})
		}
	}
}
