package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"strconv"

	"github.com/fleetwise/fleet-services/internal/auditsvc/store"
	"github.com/go-chi/jwtauth"
	log "github.com/sirupsen/logrus"
)

const (
	defaultEventLimit = 50
	maxEventLimit     = 500
)

// EventStore is the read surface the handlers need; implemented by
// store.AuditStore, faked in tests.
type EventStore interface {
	Recent(ctx context.Context, limit int) ([]*store.AuditRow, error)
}

type Handler struct {
	tokenAuth *jwtauth.JWTAuth
	events    EventStore
}

func NewHandler(events EventStore) *Handler {
	return &Handler{events: events}
}

type Response struct {
	Message string      `json:"message"`
	Code    int         `json:"code"`
	Data    interface{} `json:"data"`
	Error   string      `json:"error"`
}

func (h *Handler) CreateResponse(w http.ResponseWriter, rsp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(rsp.Code)

	if err := json.NewEncoder(w).Encode(rsp); err != nil {
		log.Errorf("Failed to encode response: %v", err)
	}
}

// ListEvents returns the most recent audit events, newest first. The
// limit parameter is clamped; anything unparseable falls back to the
// default.
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	limit := defaultEventLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			limit = v
		}
	}
	if limit > maxEventLimit {
		limit = maxEventLimit
	}

	rows, err := h.events.Recent(r.Context(), limit)
	if err != nil {
		log.Errorf("list audit events: %v", err)
		h.CreateResponse(w, Response{Code: http.StatusInternalServerError, Error: "internal failure"})
		return
	}
	h.CreateResponse(w, Response{Code: http.StatusOK, Data: rows})
}

func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	rsp := Response{
		Message: "audit service is running at port " + os.Getenv("AUDIT_SERVICE_PORT"),
		Code:    200,
		Data:    nil,
	}
	if err := json.NewEncoder(w).Encode(rsp); err != nil {
		log.Errorf("Failed to encode health response: %v", err)
	}
}
