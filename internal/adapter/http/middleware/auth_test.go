package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/infrastructure/auth"
)

func TestAuthenticate(t *testing.T) {
	manager := auth.NewJWTManager("test-secret", time.Hour)
	expired := auth.NewJWTManager("test-secret", -time.Minute)

	valid, err := manager.Generate("user-1", domain.RoleCustomer)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	stale, err := expired.Generate("user-1", domain.RoleCustomer)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{"valid token", "Bearer " + valid, http.StatusOK},
		{"lowercase scheme", "bearer " + valid, http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"garbage token", "Bearer not-a-jwt", http.StatusUnauthorized},
		{"expired token", "Bearer " + stale, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var principal domain.Principal
			handler := Authenticate(manager)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				principal, _ = domain.PrincipalFromContext(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/v1/accounts", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()

			handler.ServeHTTP(rr, req)

			if rr.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d", tt.wantStatus, rr.Code)
			}
			if tt.wantStatus == http.StatusOK && (principal.OwnerID != "user-1" || principal.Role != domain.RoleCustomer) {
				t.Fatalf("unexpected principal %+v", principal)
			}
		})
	}
}

func TestRequireOperator(t *testing.T) {
	tests := []struct {
		name       string
		principal  *domain.Principal
		wantStatus int
	}{
		{"no principal", nil, http.StatusUnauthorized},
		{"customer", &domain.Principal{OwnerID: "u", Role: domain.RoleCustomer}, http.StatusForbidden},
		{"operator", &domain.Principal{OwnerID: "ops", Role: domain.RoleOperator}, http.StatusOK},
		{"admin", &domain.Principal{OwnerID: "root", Role: domain.RoleAdmin}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := RequireOperator(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

			req := httptest.NewRequest(http.MethodPost, "/api/v1/deposits", nil)
			if tt.principal != nil {
				req = req.WithContext(domain.ContextWithPrincipal(req.Context(), *tt.principal))
			}
			rr := httptest.NewRecorder()

			handler.ServeHTTP(rr, req)

			if rr.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d", tt.wantStatus, rr.Code)
			}
		})
	}
}
