package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/utafrali/storefront/internal/guestcart"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/logger"
)

// DefaultMergeDelay lets the freshly authenticated cart finish loading before
// guest items are replayed into it.
const DefaultMergeDelay = time.Second

var (
	// ErrMergePending is returned when a merge for the guest is already
	// scheduled or running.
	ErrMergePending = apperrors.Conflict("a merge for this guest cart is already in progress")

	// ErrCoordinatorStopped is returned once Stop has been called.
	ErrCoordinatorStopped = apperrors.ServiceUnavailable("shutting down")
)

// AdderForToken returns a CartAdder acting on behalf of the user owning token.
type AdderForToken func(token string) CartAdder

// LoginCoordinator runs the guest cart merge that follows a successful login.
type LoginCoordinator struct {
	merger   *Merger
	keyspace *guestcart.Keyspace
	adderFor AdderForToken
	delay    time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	pending map[string]struct{}
	stopped bool
	stop    chan struct{}
	wg      sync.WaitGroup
}

// NewLoginCoordinator creates a coordinator. A negative delay is treated as zero.
func NewLoginCoordinator(merger *Merger, keyspace *guestcart.Keyspace, adderFor AdderForToken, delay time.Duration, logger *slog.Logger) *LoginCoordinator {
	if delay < 0 {
		delay = 0
	}
	return &LoginCoordinator{
		merger:   merger,
		keyspace: keyspace,
		adderFor: adderFor,
		delay:    delay,
		logger:   logger,
		pending:  make(map[string]struct{}),
		stop:     make(chan struct{}),
	}
}

// ScheduleMerge merges guestID's cart into the cart of the user owning token
// after the configured delay. The merge outlives ctx and cannot be cancelled
// once started. It returns ErrCoordinatorStopped after Stop, and
// ErrMergePending when a merge for guestID is already pending or running.
func (c *LoginCoordinator) ScheduleMerge(ctx context.Context, guestID, token string) error {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return ErrCoordinatorStopped
	}
	if _, ok := c.pending[guestID]; ok {
		c.mu.Unlock()
		return ErrMergePending
	}
	c.pending[guestID] = struct{}{}
	c.wg.Add(1)
	c.mu.Unlock()

	mergeCtx := logger.WithGuestID(context.WithoutCancel(ctx), guestID)

	go func() {
		defer c.wg.Done()
		defer c.release(guestID)

		timer := time.NewTimer(c.delay)
		defer timer.Stop()

		select {
		case <-timer.C:
		case <-c.stop:
			logger.WithContext(mergeCtx, c.logger).InfoContext(mergeCtx, "pending guest cart merge abandoned on shutdown")
			return
		}

		c.merger.Merge(mergeCtx, c.keyspace.For(guestID), c.adderFor(token))
	}()

	return nil
}

// Wait blocks until every scheduled merge has finished.
func (c *LoginCoordinator) Wait() {
	c.wg.Wait()
}

// Stop rejects new merges, abandons those still waiting out their delay and
// waits for running ones to finish.
func (c *LoginCoordinator) Stop() {
	c.mu.Lock()
	if !c.stopped {
		c.stopped = true
		close(c.stop)
	}
	c.mu.Unlock()
	c.wg.Wait()
}

func (c *LoginCoordinator) release(guestID string) {
	c.mu.Lock()
	delete(c.pending, guestID)
	c.mu.Unlock()
}
