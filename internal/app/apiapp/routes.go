package apiapp

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/commie294/T4t/internal/config"
	modsvc "github.com/commie294/T4t/internal/services/moderation"
	"github.com/commie294/T4t/internal/transport/http/handlers"
)

type Dependencies struct {
	ModerationService *modsvc.Service
	Presigner         handlers.Presigner
	Logger            *zap.Logger
	Config            config.Config
}

func RegisterRoutes(r chi.Router, deps Dependencies) {
	healthHandler := handlers.NewHealthHandler()
	reportsHandler := handlers.NewReportsHandler(deps.ModerationService, deps.Presigner, deps.Config.Bot.AdminChatID)

	opsAuthMW := OpsAuthMiddleware(deps.Config.Ops.Token, deps.Logger)

	r.Get("/healthz", healthHandler.Get)
	r.Route("/reports", func(r chi.Router) {
		r.Use(opsAuthMW)
		r.Get("/open", reportsHandler.ListOpen)
		r.Get("/{id}", reportsHandler.Get)
		r.Post("/{id}/decision", reportsHandler.Decide)
	})
}
