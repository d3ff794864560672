package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// GetRouter initialises a new http router and applies all routes
func GetRouter(srv *Server) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	return applyRoutes(r, srv)
}

func applyRoutes(r chi.Router, srv *Server) chi.Router {
	r.Route("/", func(r chi.Router) {
		r.Get("/", getIndex)
		r.Post("/metrics/init", srv.initMetrics)
		r.Post("/metrics", srv.uploadMetrics)
		r.Post("/experiments", srv.beginExperiment)
		r.Put("/results", srv.uploadResults)
		r.Post("/rows", srv.addRow)
		r.Delete("/worksheet", srv.clearWorksheet)
	})

	return r
}
