package handlers

import (
	"os"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/jwtauth"
	log "github.com/sirupsen/logrus"
)

func (h *Handler) SetRoutes(r *chi.Mux) {
	r.Route("/v1", func(r chi.Router) {

		r.Get("/health", h.HealthHandler)

		// Secure routes
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(h.tokenAuth))
			r.Use(jwtauth.Authenticator)

			r.Route("/devices", func(r chi.Router) {
				r.Post("/", h.CreateDevice)
				r.Get("/", h.ListDevices)
				r.Get("/export", h.ExportDevices)
				r.Get("/{id}", h.GetDevice)
				r.Patch("/{id}", h.UpdateDevice)
				r.Delete("/{id}", h.DeleteDevice)
				r.Put("/{id}/activate", h.ActivateDevice)
				r.Put("/{id}/deactivate", h.DeactivateDevice)
			})

			r.Route("/vehicles", func(r chi.Router) {
				r.Post("/", h.CreateVehicle)
				r.Get("/", h.ListVehicles)
				r.Get("/export", h.ExportVehicles)
				r.Get("/{id}", h.GetVehicle)
				r.Patch("/{id}", h.UpdateVehicle)
				r.Delete("/{id}", h.DeleteVehicle)
				r.Put("/{id}/activate", h.ActivateVehicle)
				r.Put("/{id}/deactivate", h.DeactivateVehicle)
			})
		})
	})
}

func (h *Handler) InitAuth() {
	var jwtKey = os.Getenv("JWT_SECRET_KEY")
	h.tokenAuth = jwtauth.New("HS256", []byte(jwtKey), nil)

	expirationTime := time.Now().Add(7 * 24 * time.Hour).Unix()

	_, tokenString, _ := h.tokenAuth.Encode(map[string]interface{}{
		"service_id": 8003022,
		"exp":        expirationTime,
	})

	// For debugging only, comment it out in production
	log.Infof("DEBUG: JWT for testing expires soon : %s", tokenString)
}
