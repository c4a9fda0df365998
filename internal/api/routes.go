package api

import (
	"net/http"
)

// RegisterRoutes регистрирует все маршруты API.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Middleware chain
	chain := Chain(
		Recovery(h.logger),
		RequestID(),
		Logging(h.logger),
	)

	// Snapshots
	mux.Handle("GET /api/v1/snapshots", chain(http.HandlerFunc(h.ListSnapshots)))
	mux.Handle("GET /api/v1/snapshots/{id}", chain(http.HandlerFunc(h.GetSnapshot)))

	// Scenes
	mux.Handle("GET /api/v1/scenes/{scene}/snapshot", chain(http.HandlerFunc(h.LatestSnapshot)))
	mux.Handle("GET /api/v1/scenes/{scene}/diff", chain(http.HandlerFunc(h.DiffScene)))
	mux.Handle("POST /api/v1/scenes/validate", chain(http.HandlerFunc(h.ValidateScene)))

	// Rebuild
	mux.Handle("POST /api/v1/rebuild", chain(http.HandlerFunc(h.Rebuild)))
}
