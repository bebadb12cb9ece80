package auth

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/honeynil/VitabuPayments/internal/infrastructure/redis"
	"github.com/honeynil/VitabuPayments/internal/models"
)

type ctxKey struct{}

func WithPrincipal(ctx context.Context, p models.Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

func PrincipalFromContext(ctx context.Context) (models.Principal, bool) {
	p, ok := ctx.Value(ctxKey{}).(models.Principal)
	return p, ok
}

type Authenticator struct {
	tokens      *TokenManager
	redisClient redis.RedisClient
}

func NewAuthenticator(tokens *TokenManager, redisClient redis.RedisClient) *Authenticator {
	return &Authenticator{tokens: tokens, redisClient: redisClient}
}

// Middleware rejects requests without a valid, unrevoked bearer token.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, status, msg := a.authenticate(r)
		if status != 0 {
			writeError(w, status, msg)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
	})
}

// Optional attaches the principal when a valid token is present and lets
// anonymous requests through. A present but invalid token is still rejected.
func (a *Authenticator) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			next.ServeHTTP(w, r)
			return
		}
		a.Middleware(next).ServeHTTP(w, r)
	})
}

func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := PrincipalFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		if !p.IsAdmin() {
			slog.Warn("admin route denied", "account_id", p.AccountID, "role", p.Role)
			writeError(w, http.StatusForbidden, "admin role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a *Authenticator) authenticate(r *http.Request) (models.Principal, int, string) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return models.Principal{}, http.StatusUnauthorized, "authorization header missing"
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return models.Principal{}, http.StatusUnauthorized, "invalid authorization header"
	}

	p, err := a.tokens.Parse(parts[1])
	if err != nil {
		slog.Warn("invalid token", "error", err)
		return models.Principal{}, http.StatusUnauthorized, "invalid token"
	}

	// Отозванные токены хранятся в Redis по jti.
	if p.TokenID != "" && a.redisClient != nil {
		revoked, err := a.redisClient.Exists(r.Context(), redis.RevokedTokenKey(p.TokenID))
		if err != nil {
			slog.Error("failed to check token revocation", "account_id", p.AccountID, "error", err)
			return models.Principal{}, http.StatusUnauthorized, "invalid or revoked token"
		}
		if revoked {
			return models.Principal{}, http.StatusUnauthorized, "invalid or revoked token"
		}
	}
	return p, 0, ""
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
