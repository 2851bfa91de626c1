package api

import (
	"context"
	"net/http"
	"time"
)

const healthCheckTimeout = 2 * time.Second

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status    string           `json:"status"`
	Timestamp string           `json:"timestamp"`
	Uptime    string           `json:"uptime"`
	Storage   ComponentHealth  `json:"storage"`
	Cache     *ComponentHealth `json:"cache,omitempty"`
	EventBus  *EventBusHealth  `json:"eventbus,omitempty"`
	Journal   *JournalHealth   `json:"journal,omitempty"`
}

// ComponentHealth represents the health of a dependency
type ComponentHealth struct {
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
	Connected bool   `json:"connected"`
	Latency   string `json:"latency,omitempty"`
}

// EventBusHealth reports local fan-out counters
type EventBusHealth struct {
	Subscribers     int    `json:"subscribers"`
	TotalEvents     uint64 `json:"total_events"`
	TotalDeliveries uint64 `json:"total_deliveries"`
	DroppedEvents   uint64 `json:"dropped_events"`
}

// JournalHealth reports the dropped-event journal size
type JournalHealth struct {
	DroppedEvents uint64 `json:"dropped_events"`
}

func checkComponent(ctx context.Context, ping func(context.Context) error) ComponentHealth {
	start := time.Now()
	if err := ping(ctx); err != nil {
		return ComponentHealth{Status: "down", Message: err.Error()}
	}
	return ComponentHealth{Status: "up", Connected: true, Latency: time.Since(start).String()}
}

// handleHealth reports "ok", "degraded" when the cache is down, or
// "unhealthy" with 503 when the database is down
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	response := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Uptime:    time.Since(s.startTime).Round(time.Second).String(),
		Storage:   checkComponent(ctx, s.store.Ping),
	}

	if s.cache != nil {
		cache := checkComponent(ctx, s.cache.Ping)
		response.Cache = &cache
		if !cache.Connected {
			response.Status = "degraded"
		}
	}

	if s.localBus != nil {
		total, delivered, dropped := s.localBus.Stats()
		response.EventBus = &EventBusHealth{
			Subscribers:     s.localBus.SubscriberCount(),
			TotalEvents:     total,
			TotalDeliveries: delivered,
			DroppedEvents:   dropped,
		}
	}

	if s.journal != nil {
		response.Journal = &JournalHealth{DroppedEvents: s.journal.Len()}
	}

	status := http.StatusOK
	if !response.Storage.Connected {
		response.Status = "unhealthy"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, response)
}
