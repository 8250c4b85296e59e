package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/obscuracam/obscurad/internal/capture"
	"github.com/obscuracam/obscurad/internal/index"
	"github.com/obscuracam/obscurad/internal/store"
)

// NewRouter creates a chi router with the appliance's control surface
// mounted. journal may be nil (captures listing degrades to empty);
// events, if non-nil, is mounted at GET /events.
func NewRouter(svc *capture.Service, media *store.Media, journal *index.DB, events http.Handler) chi.Router {
	h := NewHandler(svc, media, journal)

	r := chi.NewRouter()

	// File management, used by the on-card edit page.
	r.Get("/list", h.ListDirectory)
	r.Delete("/edit", h.DeletePath)
	r.Put("/edit", h.CreatePath)
	r.Post("/edit", h.Upload)

	// Shutter release.
	r.Get("/snap", h.Snap)

	// Capture journal.
	r.Get("/captures", h.ListCaptures)

	if events != nil {
		r.Get("/events", events.ServeHTTP)
	}

	// Everything else is served straight from the media.
	r.NotFound(h.ServeMedia)

	return r
}
