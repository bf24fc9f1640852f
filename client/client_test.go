package client

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// newTestServer creates a test server that routes to the given handler map.
// Keys are "METHOD /path", values are handler funcs.
func newTestServer(t *testing.T, routes map[string]http.HandlerFunc) (*httptest.Server, *Client) {
	t.Helper()
	mux := http.NewServeMux()
	for pattern, handler := range routes {
		mux.HandleFunc(pattern, handler)
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	c := New(srv.URL)
	if err := c.Session().Set("test-token", User{ID: "u1", Email: "a@x.com"}); err != nil {
		t.Fatalf("set session: %v", err)
	}
	return srv, c
}

func jsonResponse(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func TestHealth(t *testing.T) {
	_, c := newTestServer(t, map[string]http.HandlerFunc{
		"GET /api/health": func(w http.ResponseWriter, _ *http.Request) {
			jsonResponse(w, 200, HealthResponse{Status: "ok", Version: "1.2.0"})
		},
	})
	resp, err := c.Health(context.Background())
	if err != nil {
		t.Fatalf("Health() error: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("got status %q, want ok", resp.Status)
	}
	if resp.Version != "1.2.0" {
		t.Errorf("got version %q, want 1.2.0", resp.Version)
	}
}

func TestLoginStoresSession(t *testing.T) {
	var gotBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/auth/login" {
			http.NotFound(w, r)
			return
		}
		json.NewDecoder(r.Body).Decode(&gotBody) //nolint:errcheck
		jsonResponse(w, 200, LoginResponse{
			Token: "jwt-1",
			User:  User{ID: "u1", Username: "ada", Email: "ada@example.com"},
		})
	}))
	t.Cleanup(srv.Close)

	c := New(srv.URL)
	resp, err := c.Auth.Login(context.Background(), "ada", "secret")
	if err != nil {
		t.Fatalf("Login error: %v", err)
	}
	if resp.Token != "jwt-1" {
		t.Errorf("token: got %q", resp.Token)
	}
	if gotBody["username"] != "ada" || gotBody["password"] != "secret" {
		t.Errorf("login body: got %v", gotBody)
	}
	if c.Session().Token() != "jwt-1" {
		t.Errorf("session token: got %q", c.Session().Token())
	}
	if u := c.Session().User(); u == nil || u.Email != "ada@example.com" {
		t.Errorf("session user: got %+v", u)
	}

	if err := c.Auth.Logout(); err != nil {
		t.Fatalf("Logout error: %v", err)
	}
	if c.Session().Token() != "" {
		t.Error("expected token to be cleared after logout")
	}
}

func TestDocuments(t *testing.T) {
	_, c := newTestServer(t, map[string]http.HandlerFunc{
		"GET /api/cmmc/documents": func(w http.ResponseWriter, r *http.Request) {
			if got := r.URL.Query().Get("status"); got != StatusEffective {
				t.Errorf("status filter: got %q", got)
			}
			jsonResponse(w, 200, DocumentPage{
				Documents:  []Document{{Code: "SOP-001", Status: StatusEffective}},
				Pagination: Pagination{Page: 1, Limit: 25, Total: 1, TotalPages: 1},
			})
		},
		"GET /api/cmmc/documents/SOP-001": func(w http.ResponseWriter, _ *http.Request) {
			jsonResponse(w, 200, Document{Code: "SOP-001", LatestRevision: &Revision{Number: 2}})
		},
		"POST /api/cmmc/documents": func(w http.ResponseWriter, r *http.Request) {
			var req CreateDocumentRequest
			json.NewDecoder(r.Body).Decode(&req) //nolint:errcheck
			jsonResponse(w, 201, Document{Code: req.Code, Title: req.Title, Status: StatusDraft})
		},
		"POST /api/cmmc/documents/SOP-001/transitions": func(w http.ResponseWriter, r *http.Request) {
			var req TransitionRequest
			json.NewDecoder(r.Body).Decode(&req) //nolint:errcheck
			if req.Event != "retire" {
				t.Errorf("event: got %q", req.Event)
			}
			jsonResponse(w, 200, Document{Code: "SOP-001", Status: StatusRetired})
		},
		"GET /api/cmmc/documents/SOP-001/audit": func(w http.ResponseWriter, _ *http.Request) {
			jsonResponse(w, 200, map[string]any{"logs": []AuditEntry{{ID: "a1", Action: "create"}}})
		},
	})

	ctx := context.Background()

	page, err := c.Documents.List(ctx, StatusEffective, 1, 25)
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(page.Documents) != 1 || page.Pagination.TotalPages != 1 {
		t.Errorf("List: got %+v", page)
	}

	doc, err := c.Documents.Get(ctx, "SOP-001")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if doc.LatestRevision == nil || doc.LatestRevision.Number != 2 {
		t.Errorf("Get: got revision %+v", doc.LatestRevision)
	}

	doc, err = c.Documents.Create(ctx, CreateDocumentRequest{Code: "SOP-002", Title: "Cleaning", Content: "x"})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if doc.Status != StatusDraft {
		t.Errorf("Create: got status %q", doc.Status)
	}

	doc, err = c.Documents.Transition(ctx, "SOP-001", TransitionRequest{Event: "retire", Reason: "superseded"})
	if err != nil {
		t.Fatalf("Transition error: %v", err)
	}
	if doc.Status != StatusRetired {
		t.Errorf("Transition: got status %q", doc.Status)
	}

	logs, err := c.Documents.Trail(ctx, "SOP-001")
	if err != nil {
		t.Fatalf("Trail error: %v", err)
	}
	if len(logs) != 1 || logs[0].Action != "create" {
		t.Errorf("Trail: got %+v", logs)
	}
}

func TestSignatures(t *testing.T) {
	_, c := newTestServer(t, map[string]http.HandlerFunc{
		"GET /api/cmmc/documents/SOP-001/signatures": func(w http.ResponseWriter, _ *http.Request) {
			jsonResponse(w, 200, map[string]any{"signatures": []Signature{
				{ID: "s1", Method: MethodTyped, User: SignatureUser{Email: "a@x.com"}},
			}})
		},
		"POST /api/cmmc/documents/SOP-001/sign": func(w http.ResponseWriter, r *http.Request) {
			var req SignRequest
			json.NewDecoder(r.Body).Decode(&req) //nolint:errcheck
			jsonResponse(w, 201, Signature{ID: "s2", Method: req.Method, Role: req.Role})
		},
	})

	ctx := context.Background()

	sigs, err := c.Signatures.List(ctx, "SOP-001")
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(sigs) != 1 || sigs[0].User.Email != "a@x.com" {
		t.Errorf("List: got %+v", sigs)
	}

	sig, err := c.Signatures.Sign(ctx, "SOP-001", SignRequest{
		Method: MethodClickwrap, Role: RoleAcknowledger, SignatureData: ClickwrapPhrase,
	})
	if err != nil {
		t.Fatalf("Sign error: %v", err)
	}
	if sig.ID != "s2" || sig.Role != RoleAcknowledger {
		t.Errorf("Sign: got %+v", sig)
	}
}

func TestGovernance(t *testing.T) {
	var gotReq ApprovalRequest
	_, c := newTestServer(t, map[string]http.HandlerFunc{
		"GET /api/governance/document/SOP-001/approval": func(w http.ResponseWriter, _ *http.Request) {
			status := VerificationStale
			jsonResponse(w, 200, GovernanceApprovalData{
				HasArtifact:  true,
				Artifact:     &GovernanceArtifact{RecordVersion: "2", VerificationStatus: &status},
				Verification: &Verification{Status: VerificationStale, Reason: "record version changed"},
			})
		},
		"POST /api/governance/document/SOP-001/reject": func(w http.ResponseWriter, r *http.Request) {
			json.NewDecoder(r.Body).Decode(&gotReq) //nolint:errcheck
			jsonResponse(w, 201, AuditEntry{ID: "a9", Action: "reject"})
		},
	})

	ctx := context.Background()

	data, err := c.Governance.Approval(ctx, ApprovalURL("document", "SOP-001"))
	if err != nil {
		t.Fatalf("Approval error: %v", err)
	}
	if !data.HasArtifact || data.Verification.Status != VerificationStale {
		t.Errorf("Approval: got %+v", data)
	}

	signedAt := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	handler := c.Governance.Handler("document", "SOP-001", DecisionReject)
	err = handler(ctx, ApprovalRequest{Username: "ada", Password: "pw", Reason: "typo", SignedAt: signedAt})
	if err != nil {
		t.Fatalf("reject handler error: %v", err)
	}
	if gotReq.Reason != "typo" || !gotReq.SignedAt.Equal(signedAt) {
		t.Errorf("reject body: got %+v", gotReq)
	}
}

func TestAuditListAndExport(t *testing.T) {
	_, c := newTestServer(t, map[string]http.HandlerFunc{
		"GET /api/system/audit": func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			if q.Get("page") != "2" || q.Get("limit") != "25" || q.Get("action") != "sign" {
				t.Errorf("list query: got %v", q)
			}
			jsonResponse(w, 200, AuditPage{
				Logs:       []AuditEntry{{ID: "a1", Action: "sign"}},
				Pagination: Pagination{Page: 2, Limit: 25, Total: 30, TotalPages: 2},
			})
		},
		"GET /api/system/audit/export": func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			if q.Get("format") != "csv" || q.Get("startDate") != "2024-01-01" {
				t.Errorf("export query: got %v", q)
			}
			if q.Has("action") {
				t.Error("export must not send the action filter")
			}
			w.Header().Set("Content-Type", "text/csv")
			w.Write([]byte("id,action\na1,sign\n")) //nolint:errcheck
		},
	})

	ctx := context.Background()
	filters := AuditFilters{StartDate: "2024-01-01", Action: "sign"}

	page, err := c.Audit.List(ctx, 2, 25, filters)
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if page.Pagination.Total != 30 || len(page.Logs) != 1 {
		t.Errorf("List: got %+v", page)
	}

	var buf bytes.Buffer
	if err := c.Audit.Export(ctx, "csv", filters, &buf); err != nil {
		t.Fatalf("Export error: %v", err)
	}
	if buf.String() != "id,action\na1,sign\n" {
		t.Errorf("Export body: got %q", buf.String())
	}
}

func TestAPIError(t *testing.T) {
	_, c := newTestServer(t, map[string]http.HandlerFunc{
		"POST /api/cmmc/documents/SOP-001/sign": func(w http.ResponseWriter, _ *http.Request) {
			jsonResponse(w, 409, map[string]string{
				"error": "document already signed by this user", "code": "CONFLICT", "requestId": "req-1",
			})
		},
		"GET /api/cmmc/documents/missing": func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(404)
			w.Write([]byte("<html>not found</html>")) //nolint:errcheck
		},
	})

	ctx := context.Background()

	_, err := c.Signatures.Sign(ctx, "SOP-001", SignRequest{Method: MethodTyped})
	if !IsConflict(err) {
		t.Fatalf("expected conflict, got: %v", err)
	}
	apiErr := err.(*APIError) //nolint:errorlint // direct return
	if apiErr.RequestID != "req-1" || apiErr.Message != "document already signed by this user" {
		t.Errorf("APIError: got %+v", apiErr)
	}

	_, err = c.Documents.Get(ctx, "missing")
	if !IsNotFound(err) {
		t.Fatalf("expected not found, got: %v", err)
	}
	if err.Error() != "Request failed (404)" {
		t.Errorf("fallback message: got %q", err.Error())
	}
}

func TestDownloadDoesNotWriteErrorBody(t *testing.T) {
	_, c := newTestServer(t, map[string]http.HandlerFunc{
		"GET /api/cmmc/documents/SOP-001/signatures/manifest": func(w http.ResponseWriter, _ *http.Request) {
			jsonResponse(w, 403, map[string]string{"error": "insufficient role", "code": "FORBIDDEN"})
		},
	})

	var buf bytes.Buffer
	err := c.Documents.Manifest(context.Background(), "SOP-001", &buf)
	if !IsForbidden(err) {
		t.Fatalf("expected forbidden, got: %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("expected nothing written, got %q", buf.String())
	}
}

func TestAuthHeader(t *testing.T) {
	var gotAuth string
	_, c := newTestServer(t, map[string]http.HandlerFunc{
		"GET /api/auth/me": func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			jsonResponse(w, 200, User{ID: "u1"})
		},
	})

	c.Auth.Me(context.Background()) //nolint:errcheck
	if gotAuth != "Bearer test-token" {
		t.Errorf("auth header: got %q, want %q", gotAuth, "Bearer test-token")
	}
}

func TestNoAuthHeaderWhenSignedOut(t *testing.T) {
	gotAuth := "unset"
	_, c := newTestServer(t, map[string]http.HandlerFunc{
		"GET /api/health": func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			jsonResponse(w, 200, HealthResponse{Status: "ok"})
		},
	})
	c.Session().Clear() //nolint:errcheck

	c.Health(context.Background()) //nolint:errcheck
	if gotAuth != "" {
		t.Errorf("auth header: got %q, want none", gotAuth)
	}
}
