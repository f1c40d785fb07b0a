package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/fleetwise/fleet-services/internal/fleetsvc/export"
	"github.com/fleetwise/fleet-services/internal/fleetsvc/service"
	"github.com/fleetwise/fleet-services/internal/fleetsvc/store"
	"github.com/go-chi/chi"
	log "github.com/sirupsen/logrus"
)

func deviceFilterParams(r *http.Request) (store.DeviceFilterParams, error) {
	q := r.URL.Query()

	p := store.DeviceFilterParams{
		Search:         q.Get("search"),
		SearchRefs:     q.Get("search_refs") == "true",
		AccountID:      q.Get("account_id"),
		VehicleID:      q.Get("vehicle_id"),
		RegistrationID: q.Get("registration_id"),
		DriverID:       q.Get("driver_id"),
		Carriers:       q["carrier"],
	}
	if raw := q.Get("active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			return store.DeviceFilterParams{}, fmt.Errorf("%w: active %q", store.ErrInvalidInput, raw)
		}
		p.Active = &active
	}
	return p, nil
}

func (h *Handler) CreateDevice(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var in service.CreateDeviceInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.CreateResponse(w, Response{Code: http.StatusBadRequest, Error: "malformed request body"})
		return
	}

	d, err := h.devices.Create(r.Context(), in)
	h.emit(r, "devices", "create", start, err)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.CreateResponse(w, Response{Message: "device created", Code: http.StatusCreated, Data: d})
}

func (h *Handler) ListDevices(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	params, err := deviceFilterParams(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	list, err := h.devices.List(r.Context(), params, pageParams(r))
	h.emit(r, "devices", "list", start, err)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.CreateResponse(w, Response{Code: http.StatusOK, Data: list})
}

func (h *Handler) GetDevice(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	view, err := h.devices.Get(r.Context(), chi.URLParam(r, "id"))
	h.emit(r, "devices", "get", start, err)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.CreateResponse(w, Response{Code: http.StatusOK, Data: view})
}

func (h *Handler) UpdateDevice(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var in service.UpdateDeviceInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.CreateResponse(w, Response{Code: http.StatusBadRequest, Error: "malformed request body"})
		return
	}

	d, err := h.devices.Update(r.Context(), chi.URLParam(r, "id"), in)
	h.emit(r, "devices", "update", start, err)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.CreateResponse(w, Response{Message: "device updated", Code: http.StatusOK, Data: d})
}

func (h *Handler) DeleteDevice(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	err := h.devices.Delete(r.Context(), chi.URLParam(r, "id"))
	h.emit(r, "devices", "delete", start, err)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.CreateResponse(w, Response{Message: "device deleted", Code: http.StatusOK})
}

func (h *Handler) ActivateDevice(w http.ResponseWriter, r *http.Request) {
	h.setDeviceActive(w, r, true)
}

func (h *Handler) DeactivateDevice(w http.ResponseWriter, r *http.Request) {
	h.setDeviceActive(w, r, false)
}

func (h *Handler) setDeviceActive(w http.ResponseWriter, r *http.Request, active bool) {
	start := time.Now()

	d, err := h.devices.SetActive(r.Context(), chi.URLParam(r, "id"), active)
	h.emit(r, "devices", "update", start, err)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.CreateResponse(w, Response{Message: "device status changed", Code: http.StatusOK, Data: d})
}

// ExportDevices streams the full matching set in the requested format.
// The format parameter is checked before any resolution work. Once
// bytes have been flushed to the client the response cannot be rolled
// back; failures past that point are logged only.
func (h *Handler) ExportDevices(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		h.CreateResponse(w, Response{Code: http.StatusBadRequest, Error: err.Error()})
		return
	}

	params, err := deviceFilterParams(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	views, err := h.devices.Export(r.Context(), params)
	if err != nil {
		h.emit(r, "devices", "export", start, err)
		h.writeError(w, err)
		return
	}

	rows := make([][]string, len(views))
	for i, v := range views {
		rows[i] = export.DeviceRow(v)
	}

	enc := export.NewEncoder(format)
	sink := &export.CountingWriter{W: w, OnFirst: func() {
		w.Header().Set("Content-Type", enc.ContentType())
		w.Header().Set("Content-Disposition", `attachment; filename="`+export.Filename("devices", format)+`"`)
	}}
	n, err := enc.Encode(r.Context(), sink, export.DeviceTable(), rows)
	h.emit(r, "devices", "export", start, err)
	if err != nil {
		if sink.Written() == 0 {
			h.writeError(w, err)
			return
		}
		log.Errorf("device export aborted mid-stream after %d rows, %d bytes: %v", n, sink.Written(), err)
		return
	}

	log.Infof("device export complete: format=%s rows=%d", format, n)
}
