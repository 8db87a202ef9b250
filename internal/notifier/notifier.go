// Package notifier delivers alert notifications over console, browser and
// webhook channels.
package notifier

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/good-yellow-bee/blazewatch/internal/models"
)

// Notifier is the interface for all notification channels.
type Notifier interface {
	// Name returns the delivery method the notifier serves.
	Name() models.NotificationMethod
	// Send delivers a notification.
	Send(ctx context.Context, n *models.AlertNotification) error
	// Close releases any resources.
	Close() error
}

// Dispatcher routes notifications to registered notifiers.
type Dispatcher struct {
	mu          sync.RWMutex
	notifiers   map[models.NotificationMethod]Notifier
	rateLimiter *RateLimiter
}

// NewDispatcher creates a dispatcher with default rate limiting.
func NewDispatcher() *Dispatcher {
	return NewDispatcherWithRateLimit(DefaultRateLimitConfig())
}

// NewDispatcherWithRateLimit creates a dispatcher with custom rate limit configuration.
func NewDispatcherWithRateLimit(config RateLimitConfig) *Dispatcher {
	return &Dispatcher{
		notifiers:   make(map[models.NotificationMethod]Notifier),
		rateLimiter: NewRateLimiter(config),
	}
}

// Register adds a notifier, replacing any registered for the same method.
func (d *Dispatcher) Register(n Notifier) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.notifiers[n.Name()] = n
}

// Get returns the notifier registered for a method.
func (d *Dispatcher) Get(method models.NotificationMethod) (Notifier, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	n, ok := d.notifiers[method]
	return n, ok
}

// ErrRateLimited is returned when a dispatch is dropped due to rate limiting.
var ErrRateLimited = errors.New("notification rate limited")

// Dispatch sends n to the notifiers for each listed method. Unknown methods
// are skipped. The rate limit token is refunded when nothing was delivered.
func (d *Dispatcher) Dispatch(ctx context.Context, methods []models.NotificationMethod, n *models.AlertNotification) error {
	if len(methods) == 0 {
		return nil
	}

	if d.rateLimiter != nil && !d.rateLimiter.Allow() {
		return ErrRateLimited
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	var errs []error
	delivered := 0
	for _, method := range methods {
		notifier, ok := d.notifiers[method]
		if !ok {
			continue
		}
		if err := notifier.Send(ctx, n); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", method, err))
			continue
		}
		delivered++
	}

	if delivered == 0 && d.rateLimiter != nil {
		d.rateLimiter.Release()
	}
	if len(errs) > 0 {
		return fmt.Errorf("notification errors: %w", errors.Join(errs...))
	}
	return nil
}

// RateLimitStats returns the rate limiter statistics.
func (d *Dispatcher) RateLimitStats() RateLimitStats {
	if d.rateLimiter == nil {
		return RateLimitStats{}
	}
	return d.rateLimiter.Stats()
}

// Close closes all registered notifiers.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var errs []error
	for method, n := range d.notifiers {
		if err := n.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", method, err))
		}
	}
	d.notifiers = make(map[models.NotificationMethod]Notifier)

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %w", errors.Join(errs...))
	}
	return nil
}
