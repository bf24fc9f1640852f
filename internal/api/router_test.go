package api_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/qmsworks/qms/internal/api"
	"github.com/qmsworks/qms/internal/models"
)

func newFullRouter(t *testing.T) http.Handler {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	auth := &mockAuthService{
		validateFn: func(_ context.Context, token string) (*models.Actor, error) {
			switch token {
			case "qa-token":
				a := testActor
				return &a, nil
			case "user-token":
				a := testActor
				a.Role = models.UserRoleUser
				return &a, nil
			}

			return nil, models.ErrInvalidToken
		},
	}

	audit := &mockAuditService{
		listFn: func(context.Context, models.AuditQueryOpts) (*models.AuditPage, error) {
			return &models.AuditPage{}, nil
		},
		verifyFn: func(context.Context) (*models.ChainReport, error) {
			return &models.ChainReport{Valid: true}, nil
		},
	}

	return api.NewRouter(ctx, &api.RouterDeps{
		Log:         testLogger(),
		Auth:        auth,
		Documents:   &mockDocumentService{},
		Signatures:  &mockSignatureService{},
		Approvals:   &mockApprovalService{},
		Governance:  &mockGovernanceService{},
		Audit:       audit,
		Access:      &mockAccess{},
		CORSOrigins: []string{"http://localhost:3000"},
		Version:     "test",
	})
}

func TestRouter_AccessControl(t *testing.T) {
	t.Parallel()

	r := newFullRouter(t)

	tests := []struct {
		name     string
		path     string
		token    string
		wantCode int
	}{
		{"health is public", "/api/health", "", http.StatusOK},
		{"metrics is public", "/metrics", "", http.StatusOK},
		{"audit needs a token", "/api/system/audit", "", http.StatusUnauthorized},
		{"audit rejects bad token", "/api/system/audit", "forged", http.StatusUnauthorized},
		{"audit forbids plain users", "/api/system/audit", "user-token", http.StatusForbidden},
		{"audit allows qa", "/api/system/audit", "qa-token", http.StatusOK},
		{"verify is admin only", "/api/system/audit/verify", "qa-token", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, http.NoBody)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}

			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantCode {
				t.Errorf("expected %d, got %d: %s", tt.wantCode, w.Code, w.Body.String())
			}

			if w.Header().Get("X-Request-ID") == "" {
				t.Error("expected X-Request-ID header")
			}
		})
	}
}
