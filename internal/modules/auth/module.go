package auth

import (
	"log/slog"

	"github.com/jmoiron/sqlx"
	goredis "github.com/redis/go-redis/v9"
	"github.com/saransh1220/filebox/internal/modules/auth/application"
	"github.com/saransh1220/filebox/internal/modules/auth/infrastructure/persistence/postgres"
	"github.com/saransh1220/filebox/internal/modules/auth/infrastructure/redis"
	auth_http "github.com/saransh1220/filebox/internal/modules/auth/interfaces/http"
	"github.com/saransh1220/filebox/internal/shared/infrastructure/config"
)

// Module represents the Auth module
type Module struct {
	service    *application.AuthService
	repository *postgres.PgUserRepository
	handler    *auth_http.AuthHandler
}

// NewModule creates and initializes the Auth module
func NewModule(db *sqlx.DB, rdb goredis.UniversalClient, jwtCfg config.JWTConfig, googleCfg config.GoogleConfig, logger *slog.Logger) *Module {
	repository := postgres.NewUserRepository(db)
	service := application.NewAuthService(
		repository,
		redis.NewRevocationStore(rdb),
		jwtCfg.Secret,
		jwtCfg.Expiry,
		application.WithGoogle(googleCfg.ClientID, nil),
		application.WithLogger(logger),
	)

	return &Module{
		service:    service,
		repository: repository,
		handler:    auth_http.NewAuthHandler(service, logger),
	}
}

// Service returns the auth service; the gateway uses it as the token verifier.
func (m *Module) Service() *application.AuthService {
	return m.service
}

// HTTPHandler returns the HTTP handler for the auth module
func (m *Module) HTTPHandler() *auth_http.AuthHandler {
	return m.handler
}
