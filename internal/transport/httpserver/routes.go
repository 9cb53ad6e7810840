package httpserver

import (
	"net/http"
	"time"

	"babytrack-go/internal/config"
	"babytrack-go/internal/transport/httpserver/handler"
	authmw "babytrack-go/internal/transport/httpserver/middleware"
	"babytrack-go/pkg/logger"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

const requestTimeout = 30 * time.Second

func NewRouter(cfg config.Config, handlers *handler.Handlers, profiles authmw.ProfileSaver, log logger.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(authmw.NewCORS(cfg.CORSOrigins))

	auth := authmw.NewSupabaseAuth(cfg.Supabase, profiles, log)

	r.Route("/api", func(r chi.Router) {
		// The change stream is long-lived and stays outside the request timeout.
		r.With(auth.Middleware).Get("/session/changes", handlers.Session.StreamChanges)

		r.Group(func(r chi.Router) {
			r.Use(chimw.Timeout(requestTimeout))

			r.Get("/health", handlers.Common.Health)
			r.With(auth.Optional).Get("/invitations/token/{token}", handlers.Invitations.GetInvitationByToken)

			r.Group(func(r chi.Router) {
				r.Use(auth.Middleware)

				r.Get("/auth/me", handlers.Common.AuthMe)

				r.Get("/session", handlers.Session.GetSession)
				r.Put("/session/baby", handlers.Session.SelectBaby)

				r.Get("/babies", handlers.Babies.ListBabies)
				r.Post("/babies", handlers.Babies.CreateBaby)

				r.Route("/babies/{baby_id}", func(r chi.Router) {
					r.Get("/", handlers.Babies.GetBaby)
					r.Patch("/", handlers.Babies.UpdateBaby)
					r.Delete("/", handlers.Babies.DeleteBaby)

					r.Get("/collaborators", handlers.Babies.ListCollaborators)
					r.Patch("/collaborators/{user_id}", handlers.Babies.UpdateCollaboratorRole)
					r.Delete("/collaborators/{user_id}", handlers.Babies.RemoveCollaborator)
					r.Post("/leave", handlers.Babies.LeaveBaby)

					r.Get("/invitations", handlers.Invitations.ListInvitations)
					r.Post("/invitations", handlers.Invitations.CreateInvitation)

					r.Route("/feedings", handlers.Feedings.Routes)
					r.Route("/sleeps", handlers.Sleeps.Routes)
					r.Route("/diapers", handlers.Diapers.Routes)
					r.Route("/health", handlers.Health.Routes)

					r.Get("/activity", handlers.Insights.ListActivity)
					r.Get("/stats", handlers.Insights.GetStats)
					r.Get("/export", handlers.Insights.ExportRecords)
					r.Post("/export/archive", handlers.Insights.ArchiveExport)
				})

				r.Post("/invitations/{invitation_id}/cancel", handlers.Invitations.CancelInvitation)
				r.Post("/invitations/{invitation_id}/resend", handlers.Invitations.ResendInvitation)
				r.Post("/invitations/token/{token}/accept", handlers.Invitations.AcceptInvitation)
				r.Post("/invitations/token/{token}/decline", handlers.Invitations.DeclineInvitation)
			})
		})
	})

	return r
}
