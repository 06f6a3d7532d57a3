package setup

import (
	"context"

	"github.com/renzo-dev/accounts/internal/handler"
	"github.com/renzo-dev/accounts/internal/notifier"
	"github.com/renzo-dev/accounts/internal/service"
	"github.com/renzo-dev/accounts/internal/storage/pg"
	"github.com/renzo-dev/accounts/shared/config"
	"github.com/renzo-dev/accounts/shared/jwt"
)

// Dependencies holds all initialized collaborators.
type Dependencies struct {
	Storage    *pg.Storage
	Dispatcher *notifier.Dispatcher
	Handler    *handler.Handler
	Config     *config.Config
}

// SetupDependencies wires storage, mail dispatch and the auth service.
// The dispatcher is returned unstarted; main owns its lifecycle.
func SetupDependencies(ctx context.Context, cfg *config.Config) (*Dependencies, error) {
	storage, err := pg.New(ctx, &cfg.Private.Pg)
	if err != nil {
		return nil, err
	}

	mailer := notifier.NewMailer(&cfg.Private.Email)
	dispatcher := notifier.NewDispatcher(mailer, cfg.Public.NotifierQueueSize)

	signer := jwt.New(cfg.JwtKey(), cfg.JwtTTL())
	checker := service.NewPasswordChecker(storage)
	auth := service.NewAuth(storage, dispatcher, checker, signer, &cfg.Public)

	h := handler.New(auth, storage, cfg)

	return &Dependencies{
		Storage:    storage,
		Dispatcher: dispatcher,
		Handler:    h,
		Config:     cfg,
	}, nil
}
