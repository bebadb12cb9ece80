package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/honeynil/VitabuPayments/internal/handler"
	"github.com/honeynil/VitabuPayments/internal/infrastructure/auth"
	"github.com/honeynil/VitabuPayments/internal/infrastructure/redis"
	"github.com/honeynil/VitabuPayments/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Requests below never reach a service, so the handler runs without any.
func TestSetupRouter(t *testing.T) {
	tokens := auth.NewTokenManager("router-secret", time.Hour)
	router := SetupRouter(
		handler.NewHandler(nil, nil, nil, nil, nil),
		auth.NewAuthenticator(tokens, redis.NewMemoryClient()),
	)

	issue := func(role models.Role) string {
		tok, err := tokens.Issue(models.Principal{AccountID: uuid.New(), Role: role, TokenID: uuid.NewString()})
		require.NoError(t, err)
		return "Bearer " + tok
	}

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		authHeader string
		wantStatus int
	}{
		{name: "Health", method: "GET", path: "/health", wantStatus: http.StatusOK},
		{name: "Metrics", method: "GET", path: "/metrics", wantStatus: http.StatusOK},
		{name: "ProtectedWithoutToken", method: "GET", path: "/balance", wantStatus: http.StatusUnauthorized},
		{name: "ProtectedWithGarbageToken", method: "GET", path: "/balance", authHeader: "Bearer nope", wantStatus: http.StatusUnauthorized},
		{name: "ProtectedReachesHandler", method: "POST", path: "/deposits", body: `{"amount":5000,"phone":"123"}`, authHeader: issue(models.RoleBuyer), wantStatus: http.StatusBadRequest},
		{name: "StatusIsPublic", method: "POST", path: "/payments/status", body: `{}`, wantStatus: http.StatusBadRequest},
		{name: "AnonymousPurchaseAllowed", method: "POST", path: "/purchases", body: `{"book_id":"x"}`, wantStatus: http.StatusBadRequest},
		{name: "AnonymousPurchaseBadToken", method: "POST", path: "/purchases", body: `{}`, authHeader: "Bearer nope", wantStatus: http.StatusUnauthorized},
		{name: "AdminWithoutToken", method: "GET", path: "/admin/withdrawals", wantStatus: http.StatusUnauthorized},
		{name: "AdminAsSeller", method: "GET", path: "/admin/withdrawals", authHeader: issue(models.RoleSeller), wantStatus: http.StatusForbidden},
		{name: "AdminReachesHandler", method: "GET", path: "/admin/withdrawals?limit=x", authHeader: issue(models.RoleAdmin), wantStatus: http.StatusBadRequest},
		{name: "WrongMethod", method: "GET", path: "/deposits", wantStatus: http.StatusMethodNotAllowed},
		{name: "UnknownPath", method: "GET", path: "/nowhere", wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestStatusRecorder(t *testing.T) {
	rec := &statusRecorder{ResponseWriter: httptest.NewRecorder()}
	_, err := rec.Write([]byte("ok"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.status)
}
