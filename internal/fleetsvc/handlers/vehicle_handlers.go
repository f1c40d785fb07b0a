package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/fleetwise/fleet-services/internal/fleetsvc/export"
	"github.com/fleetwise/fleet-services/internal/fleetsvc/service"
	"github.com/fleetwise/fleet-services/internal/fleetsvc/store"
	"github.com/go-chi/chi"
	log "github.com/sirupsen/logrus"
)

func vehicleFilterParams(r *http.Request) store.VehicleFilterParams {
	q := r.URL.Query()
	return store.VehicleFilterParams{
		Search:   q.Get("search"),
		Category: q.Get("category"),
		Status:   q.Get("status"),
	}
}

func (h *Handler) CreateVehicle(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var in service.CreateVehicleInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.CreateResponse(w, Response{Code: http.StatusBadRequest, Error: "malformed request body"})
		return
	}

	v, err := h.vehicles.Create(r.Context(), in)
	h.emit(r, "vehicles", "create", start, err)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.CreateResponse(w, Response{Message: "vehicle created", Code: http.StatusCreated, Data: v})
}

func (h *Handler) ListVehicles(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	list, err := h.vehicles.List(r.Context(), vehicleFilterParams(r), pageParams(r))
	h.emit(r, "vehicles", "list", start, err)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.CreateResponse(w, Response{Code: http.StatusOK, Data: list})
}

func (h *Handler) GetVehicle(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	view, err := h.vehicles.Get(r.Context(), chi.URLParam(r, "id"))
	h.emit(r, "vehicles", "get", start, err)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.CreateResponse(w, Response{Code: http.StatusOK, Data: view})
}

func (h *Handler) UpdateVehicle(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var in service.UpdateVehicleInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.CreateResponse(w, Response{Code: http.StatusBadRequest, Error: "malformed request body"})
		return
	}

	v, err := h.vehicles.Update(r.Context(), chi.URLParam(r, "id"), in)
	h.emit(r, "vehicles", "update", start, err)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.CreateResponse(w, Response{Message: "vehicle updated", Code: http.StatusOK, Data: v})
}

func (h *Handler) DeleteVehicle(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	err := h.vehicles.Delete(r.Context(), chi.URLParam(r, "id"))
	h.emit(r, "vehicles", "delete", start, err)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.CreateResponse(w, Response{Message: "vehicle deleted", Code: http.StatusOK})
}

func (h *Handler) ActivateVehicle(w http.ResponseWriter, r *http.Request) {
	h.setVehicleStatus(w, r, "active")
}

func (h *Handler) DeactivateVehicle(w http.ResponseWriter, r *http.Request) {
	h.setVehicleStatus(w, r, "inactive")
}

func (h *Handler) setVehicleStatus(w http.ResponseWriter, r *http.Request, status string) {
	start := time.Now()

	v, err := h.vehicles.SetStatus(r.Context(), chi.URLParam(r, "id"), status)
	h.emit(r, "vehicles", "update", start, err)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.CreateResponse(w, Response{Message: "vehicle status changed", Code: http.StatusOK, Data: v})
}

func (h *Handler) ExportVehicles(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		h.CreateResponse(w, Response{Code: http.StatusBadRequest, Error: err.Error()})
		return
	}

	views, err := h.vehicles.Export(r.Context(), vehicleFilterParams(r))
	if err != nil {
		h.emit(r, "vehicles", "export", start, err)
		h.writeError(w, err)
		return
	}

	rows := make([][]string, len(views))
	for i, v := range views {
		rows[i] = export.VehicleRow(v)
	}

	enc := export.NewEncoder(format)
	sink := &export.CountingWriter{W: w, OnFirst: func() {
		w.Header().Set("Content-Type", enc.ContentType())
		w.Header().Set("Content-Disposition", `attachment; filename="`+export.Filename("vehicles", format)+`"`)
	}}
	n, err := enc.Encode(r.Context(), sink, export.VehicleTable(), rows)
	h.emit(r, "vehicles", "export", start, err)
	if err != nil {
		if sink.Written() == 0 {
			h.writeError(w, err)
			return
		}
		log.Errorf("vehicle export aborted mid-stream after %d rows, %d bytes: %v", n, sink.Written(), err)
		return
	}

	log.Infof("vehicle export complete: format=%s rows=%d", format, n)
}
