package alerts

import (
	"net/http"

	"github.com/good-yellow-bee/blazewatch/internal/api/response"
	"github.com/good-yellow-bee/blazewatch/internal/models"
)

// DeliveryStatus describes whether notifications can currently reach the
// configured channels.
type DeliveryStatus struct {
	Silent    bool            `json:"silent"`
	Methods   []MethodStatus  `json:"methods"`
	RateLimit RateLimitStatus `json:"rate_limit"`
	Stream    *StreamStatus   `json:"stream,omitempty"`
}

// MethodStatus reports one configured delivery method.
type MethodStatus struct {
	Method     models.NotificationMethod `json:"method"`
	Registered bool                      `json:"registered"`
}

type RateLimitStatus struct {
	Enabled      bool   `json:"enabled"`
	MaxPerWindow int    `json:"max_per_window"`
	Window       string `json:"window"`
	CurrentCount int    `json:"current_count"`
	Dropped      int64  `json:"dropped"`
}

type StreamStatus struct {
	Subscribers int    `json:"subscribers"`
	Permission  string `json:"permission"`
	Dropped     int64  `json:"dropped"`
}

// Delivery reports silent hours, the registration state of every configured
// method, dispatcher rate limiting and stream subscribers.
func (h *Handler) Delivery(w http.ResponseWriter, r *http.Request) {
	cfg := h.engine.Config()

	status := DeliveryStatus{
		Silent:  h.engine.InSilentHours(),
		Methods: make([]MethodStatus, 0, len(cfg.NotificationMethods)),
	}
	for _, m := range cfg.NotificationMethods {
		ms := MethodStatus{Method: m}
		if h.dispatcher != nil {
			_, ms.Registered = h.dispatcher.Get(m)
		}
		status.Methods = append(status.Methods, ms)
	}

	if h.dispatcher != nil {
		stats := h.dispatcher.RateLimitStats()
		status.RateLimit = RateLimitStatus{
			Enabled:      stats.Enabled,
			MaxPerWindow: stats.MaxPerWindow,
			Window:       stats.Window.String(),
			CurrentCount: stats.CurrentCount,
			Dropped:      stats.Dropped,
		}
	}

	if h.hub != nil {
		status.Stream = &StreamStatus{
			Subscribers: h.hub.Subscribers(),
			Permission:  string(h.hub.Permission()),
			Dropped:     h.hub.Dropped(),
		}
	}

	response.OK(w, status)
}
