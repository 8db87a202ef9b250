package notifier

import (
	"context"
	"fmt"
	"sync"

	"github.com/good-yellow-bee/blazewatch/internal/models"
)

// Permission is the notification permission a presenter holds.
type Permission string

const (
	PermissionDefault Permission = "default"
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
)

// Presenter shows a desktop notification to the user.
type Presenter interface {
	Permission() Permission
	Present(title, body string) error
}

// BrowserNotifier shows notifications through a Presenter. Delivery is
// skipped unless the presenter holds granted permission.
type BrowserNotifier struct {
	presenter Presenter
}

// NewBrowserNotifier creates a browser notifier.
func NewBrowserNotifier(p Presenter) *BrowserNotifier {
	return &BrowserNotifier{presenter: p}
}

// Name returns "browser".
func (b *BrowserNotifier) Name() models.NotificationMethod {
	return models.MethodBrowser
}

// Send presents the notification title and message.
func (b *BrowserNotifier) Send(_ context.Context, n *models.AlertNotification) error {
	if b.presenter == nil || b.presenter.Permission() != PermissionGranted {
		return nil
	}
	if err := b.presenter.Present(n.Title, n.Message); err != nil {
		return fmt.Errorf("present notification: %w", err)
	}
	return nil
}

// Close is a no-op.
func (b *BrowserNotifier) Close() error {
	return nil
}

// Toast is one presented notification.
type Toast struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Hub is a Presenter that fans toasts out to subscribed streams. It holds
// granted permission while at least one subscriber has opted in.
type Hub struct {
	mu      sync.RWMutex
	subs    map[chan Toast]Permission
	bufSize int
	dropped int64
}

// NewHub creates a hub. Each subscriber channel buffers bufSize toasts.
func NewHub(bufSize int) *Hub {
	if bufSize <= 0 {
		bufSize = 16
	}
	return &Hub{
		subs:    make(map[chan Toast]Permission),
		bufSize: bufSize,
	}
}

// Subscribe registers a stream holding permission p. Only granted streams
// receive toasts. The returned func unsubscribes and closes the channel.
func (h *Hub) Subscribe(p Permission) (<-chan Toast, func()) {
	ch := make(chan Toast, h.bufSize)

	h.mu.Lock()
	h.subs[ch] = p
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Permission returns granted if any subscriber has opted in, denied if none
// has but one refused, and default otherwise.
func (h *Hub) Permission() Permission {
	h.mu.RLock()
	defer h.mu.RUnlock()

	result := PermissionDefault
	for _, p := range h.subs {
		switch p {
		case PermissionGranted:
			return PermissionGranted
		case PermissionDenied:
			result = PermissionDenied
		}
	}
	return result
}

// Present sends a toast to every granted subscriber without blocking.
// Subscribers with full buffers miss the toast.
func (h *Hub) Present(title, body string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	toast := Toast{Title: title, Body: body}
	for ch, p := range h.subs {
		if p != PermissionGranted {
			continue
		}
		select {
		case ch <- toast:
		default:
			h.dropped++
		}
	}
	return nil
}

// Subscribers returns the number of open streams.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Dropped returns the number of toasts lost to full subscriber buffers.
func (h *Hub) Dropped() int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.dropped
}
