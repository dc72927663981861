package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/cmlabs-hris/attendance-kiosk/internal/domain/workflow"
	"github.com/cmlabs-hris/attendance-kiosk/internal/handler/http/middleware"
	"github.com/cmlabs-hris/attendance-kiosk/internal/handler/http/response"
	"github.com/cmlabs-hris/attendance-kiosk/internal/pkg/sse"
	"github.com/go-chi/chi/v5"
)

const maxBodyBytes = 64 << 10

type KioskHandler interface {
	Availability(w http.ResponseWriter, r *http.Request)
	Status(w http.ResponseWriter, r *http.Request)
	ClockIn(w http.ResponseWriter, r *http.Request)
	ClockOut(w http.ResponseWriter, r *http.Request)
	Session(w http.ResponseWriter, r *http.Request)
	History(w http.ResponseWriter, r *http.Request)
	Events(w http.ResponseWriter, r *http.Request)
}

type kioskHandlerImpl struct {
	orchestrator workflow.Orchestrator
	hub          *sse.Hub
	keepalive    time.Duration
}

func NewKioskHandler(orchestrator workflow.Orchestrator, hub *sse.Hub, keepalive time.Duration) KioskHandler {
	if keepalive <= 0 {
		keepalive = 30 * time.Second
	}
	return &kioskHandlerImpl{
		orchestrator: orchestrator,
		hub:          hub,
		keepalive:    keepalive,
	}
}

// Availability implements KioskHandler.
func (h *kioskHandlerImpl) Availability(w http.ResponseWriter, r *http.Request) {
	deviceID := middleware.DeviceIDFromContext(r.Context())
	employeeID := chi.URLParam(r, "employeeID")

	result, err := h.orchestrator.Availability(r.Context(), deviceID, employeeID, middleware.IsHRFromContext(r.Context()))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// Status implements KioskHandler.
func (h *kioskHandlerImpl) Status(w http.ResponseWriter, r *http.Request) {
	deviceID := middleware.DeviceIDFromContext(r.Context())
	employeeID := chi.URLParam(r, "employeeID")

	result, err := h.orchestrator.Status(r.Context(), deviceID, employeeID)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// ClockIn implements KioskHandler.
func (h *kioskHandlerImpl) ClockIn(w http.ResponseWriter, r *http.Request) {
	var req workflow.ClockInRequest

	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		slog.Error("Failed to decode clock-in request", "error", err)
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	cmd := req.ToCommand(middleware.DeviceIDFromContext(r.Context()), middleware.IsHRFromContext(r.Context()))
	result, err := h.orchestrator.ClockIn(r.Context(), cmd)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, result.Message, result)
}

// ClockOut implements KioskHandler.
func (h *kioskHandlerImpl) ClockOut(w http.ResponseWriter, r *http.Request) {
	var req workflow.ClockOutRequest

	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		slog.Error("Failed to decode clock-out request", "error", err)
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	cmd := req.ToCommand(middleware.DeviceIDFromContext(r.Context()), middleware.IsHRFromContext(r.Context()))
	result, err := h.orchestrator.ClockOut(r.Context(), cmd)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, result.Message, result)
}

// Session implements KioskHandler.
func (h *kioskHandlerImpl) Session(w http.ResponseWriter, r *http.Request) {
	result, err := h.orchestrator.Session(r.Context(), middleware.DeviceIDFromContext(r.Context()))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// History implements KioskHandler.
func (h *kioskHandlerImpl) History(w http.ResponseWriter, r *http.Request) {
	result, err := h.orchestrator.History(r.Context(), middleware.DeviceIDFromContext(r.Context()))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// Events streams workflow events of the calling device as server-sent events.
func (h *kioskHandlerImpl) Events(w http.ResponseWriter, r *http.Request) {
	deviceID := middleware.DeviceIDFromContext(r.Context())

	flusher, ok := w.(http.Flusher)
	if !ok {
		response.InternalServerError(w, "Streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	events, cleanup := h.hub.Subscribe(deviceID)
	defer cleanup()

	connected, _ := json.Marshal(map[string]string{"status": "connected", "device_id": deviceID})
	fmt.Fprintf(w, "event: connected\ndata: %s\n\n", connected)
	flusher.Flush()

	keepalive := time.NewTicker(h.keepalive)
	defer keepalive.Stop()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(event.Data)
			if err != nil {
				slog.Warn("Failed to encode device event", "device_id", deviceID, "event", event.Event, "error", err)
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Event, data)
			flusher.Flush()

		case <-keepalive.C:
			fmt.Fprintf(w, "event: ping\ndata: {\"timestamp\":%d}\n\n", time.Now().Unix())
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}
