package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	authdomain "github.com/saransh1220/filebox/internal/modules/auth/domain"
	filesdomain "github.com/saransh1220/filebox/internal/modules/files/domain"
	"github.com/saransh1220/filebox/internal/shared/logging"
	"github.com/saransh1220/filebox/internal/shared/utils"
)

type contextKey string

const (
	contextKeyIdentity   contextKey = "identity"
	contextKeyDataClient contextKey = "data_client"
)

// Verifier turns a bearer token into an identity.
type Verifier interface {
	Verify(ctx context.Context, token string) (*authdomain.Identity, error)
}

// ScopeFunc builds the data client a verified identity may use.
type ScopeFunc func(*authdomain.Identity) filesdomain.DataClient

type AuthMiddleWare struct {
	verifier Verifier
	scope    ScopeFunc
	logger   *slog.Logger
}

// NewAuthMiddleware creates the authentication middleware. Every request it
// lets through carries the caller's Identity and a DataClient scoped to them.
func NewAuthMiddleware(verifier Verifier, scope ScopeFunc, logger *slog.Logger) *AuthMiddleWare {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthMiddleWare{verifier: verifier, scope: scope, logger: logger}
}

// RequireAuth rejects requests without a valid bearer token in the
// Authorization header with 401.
func (m *AuthMiddleWare) RequireAuth(next http.Handler) http.Handler {
	return m.authenticate(next, BearerToken)
}

// RequireAuthQuery is RequireAuth that also accepts the token in the "token"
// query parameter. Browsers cannot set headers on a websocket upgrade.
func (m *AuthMiddleWare) RequireAuthQuery(next http.Handler) http.Handler {
	return m.authenticate(next, func(r *http.Request) string {
		if token := BearerToken(r); token != "" {
			return token
		}
		return r.URL.Query().Get("token")
	})
}

func (m *AuthMiddleWare) authenticate(next http.Handler, extract func(*http.Request) string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, err := m.verifier.Verify(r.Context(), extract(r))
		if err != nil {
			if errors.Is(err, authdomain.ErrTokenMissing) {
				utils.WriteError(w, http.StatusUnauthorized, "Auth token missing")
				return
			}
			m.logger.DebugContext(r.Context(), "token rejected", logging.Error(err))
			utils.WriteError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		ctx := NewContext(r.Context(), identity, m.scope(identity))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// BearerToken returns the token of an "Authorization: Bearer <token>" header,
// or "" when there is none.
func BearerToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// NewContext attaches an authenticated caller to ctx.
func NewContext(ctx context.Context, identity *authdomain.Identity, dc filesdomain.DataClient) context.Context {
	ctx = context.WithValue(ctx, contextKeyIdentity, identity)
	return context.WithValue(ctx, contextKeyDataClient, dc)
}

func IdentityFrom(ctx context.Context) (*authdomain.Identity, bool) {
	identity, ok := ctx.Value(contextKeyIdentity).(*authdomain.Identity)
	return identity, ok && identity != nil
}

// DataClientFrom returns the caller's scoped data client.
func DataClientFrom(ctx context.Context) (filesdomain.DataClient, bool) {
	dc, ok := ctx.Value(contextKeyDataClient).(filesdomain.DataClient)
	return dc, ok && dc != nil
}
