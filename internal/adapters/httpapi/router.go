package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type RouterOptions struct {
	// AuthMiddleware resolves the caller for every engine route. When nil,
	// requests run as anonymous callers.
	AuthMiddleware func(http.Handler) http.Handler
}

// NewRouter constructs the API HTTP router with header-based caller resolution
// and no system key.
func NewRouter(s *Server) http.Handler {
	return NewRouterWithOptions(s, RouterOptions{AuthMiddleware: NewHeaderAuthMiddleware("")})
}

func NewRouterWithOptions(s *Server, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(s.Log))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Group(func(r chi.Router) {
		if opts.AuthMiddleware != nil {
			r.Use(opts.AuthMiddleware)
		}

		r.Get("/escrow", s.GetEscrow)
		r.Get("/events", s.ListEvents)

		r.Get("/clubs/next-id", s.GetNextClubID)
		r.Post("/clubs", s.CreateClub)
		r.Get("/clubs/{clubId}", s.GetClub)
		r.Put("/clubs/{clubId}/owner", s.TransferOwnership)
		r.Put("/clubs/{clubId}/annual-fee", s.SetAnnualFee)
		r.Post("/clubs/{clubId}/memberships", s.JoinClub)
		r.Get("/clubs/{clubId}/memberships/{accountId}", s.GetMembership)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "NOT_FOUND", "route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed", nil)
	})
	return r
}
