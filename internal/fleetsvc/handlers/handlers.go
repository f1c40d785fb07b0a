package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/fleetwise/fleet-services/internal/comm"
	"github.com/fleetwise/fleet-services/internal/fleetsvc/audit"
	"github.com/fleetwise/fleet-services/internal/fleetsvc/service"
	"github.com/fleetwise/fleet-services/internal/fleetsvc/store"
	"github.com/go-chi/jwtauth"
	log "github.com/sirupsen/logrus"
)

const defaultPageSize = 20

type Handler struct {
	tokenAuth *jwtauth.JWTAuth
	devices   *service.DeviceService
	vehicles  *service.VehicleService
	audit     *audit.Publisher
}

func NewHandler(devices *service.DeviceService, vehicles *service.VehicleService, auditPub *audit.Publisher) *Handler {
	return &Handler{
		devices:  devices,
		vehicles: vehicles,
		audit:    auditPub,
	}
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

// writeError maps the core error kinds onto HTTP codes. Anything
// unrecognized is an internal failure and is never retried here.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrInvalidReference), errors.Is(err, store.ErrInvalidInput):
		h.CreateResponse(w, Response{Code: http.StatusBadRequest, Error: err.Error()})
	case errors.Is(err, store.ErrNotFound):
		h.CreateResponse(w, Response{Code: http.StatusNotFound, Error: err.Error()})
	case errors.Is(err, store.ErrDuplicateKey):
		h.CreateResponse(w, Response{Code: http.StatusConflict, Error: err.Error()})
	default:
		log.Errorf("internal failure: %v", err)
		h.CreateResponse(w, Response{Code: http.StatusInternalServerError, Error: "internal failure"})
	}
}

// emit ships one audit event for a finished operation, best effort.
func (h *Handler) emit(r *http.Request, resource, action string, start time.Time, err error) {
	outcome := "ok"
	detail := ""
	if err != nil {
		outcome = "error"
		detail = err.Error()
	}
	h.audit.Event(comm.AuditEvent{
		Method:    r.Method,
		Resource:  resource,
		Action:    action,
		Outcome:   outcome,
		Detail:    detail,
		ElapsedMs: time.Since(start).Milliseconds(),
	})
}

func pageParams(r *http.Request) store.Page {
	q := r.URL.Query()

	page := 1
	if v, err := strconv.Atoi(q.Get("page")); err == nil {
		page = v
	}

	limit := defaultPageSize
	if raw := q.Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			limit = v
		}
	}

	return store.Page{Number: page, Size: limit}
}

func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	rsp := Response{
		Message: "fleet service is running at port " + os.Getenv("FLEET_SERVICE_PORT"),
		Code:    200,
		Data:    nil,
	}
	if err := json.NewEncoder(w).Encode(rsp); err != nil {
		log.Errorf("Failed to encode health response: %v", err)
	}
}
