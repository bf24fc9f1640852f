package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/qmsworks/qms/client"
)

func jsonResponse(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

// testEnv is a fake server plus a session file signed in as ada@example.com.
type testEnv struct {
	srv     *httptest.Server
	session string
}

func newTestEnv(t *testing.T, routes map[string]http.HandlerFunc) *testEnv {
	t.Helper()
	resetFlags(t)

	mux := http.NewServeMux()
	for pattern, h := range routes {
		mux.HandleFunc(pattern, h)
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	path := filepath.Join(t.TempDir(), "session.yaml")
	err := client.FileStore{Path: path}.Save(&client.SessionData{
		Token: "tok",
		User:  &client.User{ID: "u1", Username: "ada", Email: "ada@example.com", Role: "qa"},
	})
	if err != nil {
		t.Fatalf("save session: %v", err)
	}

	return &testEnv{srv: srv, session: path}
}

// run executes the CLI against the fake server and returns stdout.
func (e *testEnv) run(t *testing.T, input string, args ...string) (string, error) {
	t.Helper()

	orig, origTerminal := stdin, stdinIsTerminal
	stdin = bufio.NewReader(strings.NewReader(input))
	stdinIsTerminal = func() bool { return false }
	t.Cleanup(func() { stdin, stdinIsTerminal = orig, origTerminal })

	root := newRootCmd()
	root.SetOut(&strings.Builder{})
	root.SetErr(&strings.Builder{})
	root.SetArgs(append([]string{"--url", e.srv.URL, "--session", e.session}, args...))

	var err error
	out := captureStdout(t, func() { err = root.Execute() })
	return out, err
}

func documentRoutes(status string, signers ...string) map[string]http.HandlerFunc {
	return map[string]http.HandlerFunc{
		"GET /api/cmmc/documents/SOP-001": func(w http.ResponseWriter, _ *http.Request) {
			jsonResponse(w, 200, client.Document{Code: "SOP-001", Status: status, LatestRevision: &client.Revision{Number: 1}})
		},
		"GET /api/cmmc/documents/SOP-001/signatures": func(w http.ResponseWriter, _ *http.Request) {
			sigs := []client.Signature{}
			for _, email := range signers {
				sigs = append(sigs, client.Signature{User: client.SignatureUser{Email: email}})
			}
			jsonResponse(w, 200, map[string]any{"signatures": sigs})
		},
	}
}

func TestGateCommand(t *testing.T) {
	tests := []struct {
		name    string
		status  string
		signers []string
		want    string
	}{
		{"signable", client.StatusEffective, []string{"bob@example.com"}, client.MsgSignable},
		{"already signed", client.StatusEffective, []string{"ADA@example.com"}, client.MsgAlreadySigned},
		{"retired", client.StatusRetired, nil, client.MsgNotSignable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, documentRoutes(tt.status, tt.signers...))
			out, err := env.run(t, "", "gate", "SOP-001")
			if err != nil {
				t.Fatalf("gate: %v", err)
			}
			if strings.TrimSpace(out) != tt.want {
				t.Errorf("gate output: got %q, want %q", out, tt.want)
			}
		})
	}
}

func TestGateCommandMissingDocument(t *testing.T) {
	env := newTestEnv(t, nil)
	out, err := env.run(t, "", "--format", "quiet", "gate", "NOPE")
	if err != nil {
		t.Fatalf("gate: %v", err)
	}
	if strings.TrimSpace(out) != string(client.GateNotSignable) {
		t.Errorf("gate output: got %q", out)
	}
}

func TestSignCommandClickwrap(t *testing.T) {
	var got client.SignRequest
	routes := documentRoutes(client.StatusEffective)
	routes["POST /api/cmmc/documents/SOP-001/sign"] = func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got) //nolint:errcheck
		jsonResponse(w, 201, client.Signature{ID: "s1"})
	}

	env := newTestEnv(t, routes)
	out, err := env.run(t, "i understand\n", "sign", "SOP-001", "--method", "clickwrap", "--role", "acknowledger")
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if got.SignatureData != client.ClickwrapPhrase || got.Method != client.MethodClickwrap || got.Role != client.RoleAcknowledger {
		t.Errorf("sign request: got %+v", got)
	}
	if !strings.Contains(out, "signed SOP-001") {
		t.Errorf("sign output: got %q", out)
	}
}

func TestSignCommandTypedPromptsAndReportsRefreshFailure(t *testing.T) {
	var got client.SignRequest
	lists := 0
	routes := documentRoutes(client.StatusEffective)
	routes["GET /api/cmmc/documents/SOP-001/signatures"] = func(w http.ResponseWriter, _ *http.Request) {
		lists++
		if lists > 1 {
			jsonResponse(w, 500, map[string]string{"error": "database unavailable", "code": "INTERNAL"})
			return
		}
		jsonResponse(w, 200, map[string]any{"signatures": []client.Signature{}})
	}
	routes["POST /api/cmmc/documents/SOP-001/sign"] = func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got) //nolint:errcheck
		jsonResponse(w, 201, client.Signature{ID: "s1"})
	}

	env := newTestEnv(t, routes)
	out, err := env.run(t, "Ada Lovelace\ns3cret\n", "sign", "SOP-001")
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if got.SignatureData != "Ada Lovelace" || got.Password != "s3cret" {
		t.Errorf("sign request: got %+v", got)
	}
	if strings.Contains(out, "0 signatures") {
		t.Errorf("failed reload reported as an empty list: %q", out)
	}
	if strings.TrimSpace(out) != "Full name: Password: signed SOP-001" {
		t.Errorf("sign output: got %q", out)
	}
}

func TestSignCommandRefusedByGate(t *testing.T) {
	posted := false
	routes := documentRoutes(client.StatusEffective, "ada@example.com")
	routes["POST /api/cmmc/documents/SOP-001/sign"] = func(w http.ResponseWriter, _ *http.Request) {
		posted = true
		jsonResponse(w, 201, client.Signature{})
	}

	env := newTestEnv(t, routes)
	_, err := env.run(t, "", "sign", "SOP-001", "--name", "Ada", "--password", "pw")
	if err == nil || err.Error() != client.MsgAlreadySigned {
		t.Fatalf("expected already-signed error, got %v", err)
	}
	if posted {
		t.Error("sign must not be posted when the gate refuses")
	}
}

func TestSignCommandValidationStaysLocal(t *testing.T) {
	posted := false
	routes := documentRoutes(client.StatusEffective)
	routes["POST /api/cmmc/documents/SOP-001/sign"] = func(w http.ResponseWriter, _ *http.Request) {
		posted = true
	}

	env := newTestEnv(t, routes)
	_, err := env.run(t, " i understand\n", "sign", "SOP-001", "--method", "CLICKWRAP")

	var fe *client.FieldError
	if !errors.As(err, &fe) || fe.Field != "confirmation" {
		t.Fatalf("expected confirmation error, got %v", err)
	}
	if posted {
		t.Error("invalid confirmation reached the server")
	}
}

func TestAuditExportCSV(t *testing.T) {
	env := newTestEnv(t, map[string]http.HandlerFunc{
		"GET /api/system/audit/export": func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/csv")
			w.Write([]byte("id\na1\n")) //nolint:errcheck
		},
	})
	dir := t.TempDir()

	out, err := env.run(t, "", "audit", "export", "--dir", dir)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	want := filepath.Join(dir, "audit-log.csv")
	if strings.TrimSpace(out) != want {
		t.Errorf("export output: got %q, want %q", out, want)
	}
	data, err := os.ReadFile(want)
	if err != nil || string(data) != "id\na1\n" {
		t.Errorf("export file: %q, %v", data, err)
	}
}

func TestAuditExportCSVFailureIsSilent(t *testing.T) {
	env := newTestEnv(t, map[string]http.HandlerFunc{
		"GET /api/system/audit/export": func(w http.ResponseWriter, _ *http.Request) {
			jsonResponse(w, 403, map[string]string{"error": "insufficient role", "code": "FORBIDDEN"})
		},
	})
	dir := t.TempDir()

	out, err := env.run(t, "", "audit", "export", "--dir", dir)
	if !errors.Is(err, errSilent) {
		t.Fatalf("expected silent failure, got %v", err)
	}
	if out != "" {
		t.Errorf("expected no output, got %q", out)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("expected empty dir, got %d entries", len(entries))
	}
}

func TestGovernanceShow(t *testing.T) {
	env := newTestEnv(t, map[string]http.HandlerFunc{
		"GET /api/governance/document/SOP-001/approval": func(w http.ResponseWriter, _ *http.Request) {
			jsonResponse(w, 200, client.GovernanceApprovalData{
				HasArtifact:  true,
				Artifact:     &client.GovernanceArtifact{RecordVersion: "2", QMSHash: "abc"},
				Verification: &client.Verification{Status: client.VerificationStale, Reason: "record version changed"},
			})
		},
	})

	out, err := env.run(t, "", "governance", "show", "document", "SOP-001")
	if err != nil {
		t.Fatalf("governance show: %v", err)
	}
	for _, want := range []string{"STALE (warning)", "record version changed"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestGovernanceApprovePrompts(t *testing.T) {
	var got client.ApprovalRequest
	env := newTestEnv(t, map[string]http.HandlerFunc{
		"POST /api/governance/document/SOP-001/approve": func(w http.ResponseWriter, r *http.Request) {
			json.NewDecoder(r.Body).Decode(&got) //nolint:errcheck
			jsonResponse(w, 201, client.GovernanceArtifact{})
		},
	})

	_, err := env.run(t, "pw\nperiodic review\n", "governance", "approve", "document", "SOP-001")
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if got.Username != "ada" || got.Password != "pw" || got.Reason != "periodic review" {
		t.Errorf("approval request: got %+v", got)
	}
	if got.SignedAt.IsZero() {
		t.Error("signedAt was not stamped")
	}
}

func TestLoginAndLogout(t *testing.T) {
	env := newTestEnv(t, map[string]http.HandlerFunc{
		"POST /api/auth/login": func(w http.ResponseWriter, _ *http.Request) {
			jsonResponse(w, 200, client.LoginResponse{Token: "new-token", User: client.User{Username: "bob"}})
		},
	})

	if _, err := env.run(t, "bob\nsecret\n", "login"); err != nil {
		t.Fatalf("login: %v", err)
	}
	data, err := client.FileStore{Path: env.session}.Load()
	if err != nil || data == nil || data.Token != "new-token" {
		t.Fatalf("session after login: %+v, %v", data, err)
	}

	if _, err := env.run(t, "", "logout"); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := os.Stat(env.session); !os.IsNotExist(err) {
		t.Errorf("session file should be removed, stat err = %v", err)
	}
}
