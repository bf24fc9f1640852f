package service

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qmsworks/qms/internal/models"
)

var signer = models.Actor{
	ID:       "u-ada",
	Username: "ada",
	Name:     "Ada Lovelace",
	Email:    "ada@example.com",
	Role:     models.UserRoleUser,
}

func docWithRevision(status models.DocumentStatus) *models.Document {
	return &models.Document{
		ID:     "d1",
		Code:   "SOP-001",
		Title:  "Line clearance",
		Status: status,
		LatestRevision: &models.Revision{
			ID:          "r2",
			Number:      2,
			ContentHash: models.ContentHash("v2"),
		},
	}
}

func newTestSignatureService(doc *models.Document) (*SignatureService, *mockSignatureStore, *mockReauth) {
	docs := &mockDocumentStore{getDocument: func(_ context.Context, code string) (*models.Document, error) {
		if doc == nil || code != doc.Code {
			return nil, models.ErrDocumentNotFound
		}

		return doc, nil
	}}

	sigs := newMockSignatureStore()
	reauth := &mockReauth{ok: "pw"}

	return NewSignatureService(docs, sigs, reauth, testLogger()), sigs, reauth
}

func TestSign_ClickwrapRecordsSignatureAndAudit(t *testing.T) {
	svc, sigs, reauth := newTestSignatureService(docWithRevision(models.StatusInReview))

	sig, err := svc.Sign(context.Background(), signer, "SOP-001", models.SignRequest{
		Method:        models.MethodClickwrap,
		Role:          models.RoleAcknowledger,
		SignatureData: "I UNDERSTAND",
	}, models.ClientMeta{IP: "10.0.0.1", UserAgent: "curl/8"})
	require.NoError(t, err)

	assert.Equal(t, "sig-1", sig.ID)
	assert.Equal(t, 2, sig.RevisionNumber)
	assert.Equal(t, models.SignatureUser{Name: "Ada Lovelace", Email: "ada@example.com"}, sig.User)
	assert.Equal(t, "10.0.0.1", sig.ClientIP)
	assert.Zero(t, reauth.calls, "click-wrap without password must not re-authenticate")

	require.Len(t, sigs.entries, 1)
	entry := sigs.entries[0]
	assert.Equal(t, models.ActionSign, entry.Action)
	assert.Equal(t, "sig-1", entry.SignatureID)
	assert.Equal(t, "ACKNOWLEDGER signature (CLICKWRAP)", entry.Reason)
	assert.Equal(t, "SOP-001", entry.EntityID)
}

func TestSign_TypedRequiresMatchingNameAndPassword(t *testing.T) {
	svc, sigs, reauth := newTestSignatureService(docWithRevision(models.StatusInReview))
	ctx := context.Background()

	_, err := svc.Sign(ctx, signer, "SOP-001", models.SignRequest{
		Method: models.MethodTyped, Role: models.RoleApprover, SignatureData: "Grace Hopper", Password: "pw",
	}, models.ClientMeta{})
	assert.Equal(t, models.KindValidation, models.KindOf(err))

	_, err = svc.Sign(ctx, signer, "SOP-001", models.SignRequest{
		Method: models.MethodTyped, Role: models.RoleApprover, SignatureData: " ada lovelace ", Password: "bad",
	}, models.ClientMeta{})
	assert.ErrorIs(t, err, models.ErrPasswordMismatch)
	assert.Empty(t, sigs.entries)

	sig, err := svc.Sign(ctx, signer, "SOP-001", models.SignRequest{
		Method: models.MethodTyped, Role: models.RoleApprover, SignatureData: " ada lovelace ", Password: "pw",
	}, models.ClientMeta{})
	require.NoError(t, err)
	assert.Equal(t, models.MethodTyped, sig.Method)
	assert.Equal(t, 2, reauth.calls)
}

func TestSign_GateOrder(t *testing.T) {
	tests := []struct {
		name    string
		doc     *models.Document
		signed  bool
		wantErr error
	}{
		{"retired", docWithRevision(models.StatusRetired), false, models.ErrNotSignable},
		{"no revision", &models.Document{ID: "d1", Code: "SOP-001", Status: models.StatusDraft}, false, models.ErrNotSignable},
		{"already signed beats retired", docWithRevision(models.StatusRetired), true, models.ErrAlreadySigned},
		{"already signed", docWithRevision(models.StatusEffective), true, models.ErrAlreadySigned},
		{"missing document", nil, false, models.ErrDocumentNotFound},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc, sigs, _ := newTestSignatureService(tc.doc)
			if tc.signed {
				sigs.signed["r2|"+signer.ID] = true
			}

			_, err := svc.Sign(context.Background(), signer, "SOP-001", models.SignRequest{
				Method: models.MethodClickwrap, Role: models.RoleAcknowledger, SignatureData: "I UNDERSTAND",
			}, models.ClientMeta{})

			assert.ErrorIs(t, err, tc.wantErr)
			assert.Empty(t, sigs.entries)
		})
	}
}

func TestSign_ClickwrapPhraseMustBeExact(t *testing.T) {
	svc, _, _ := newTestSignatureService(docWithRevision(models.StatusInReview))

	for _, phrase := range []string{"i understand", "I UNDERSTAND ", " I UNDERSTAND", ""} {
		_, err := svc.Sign(context.Background(), signer, "SOP-001", models.SignRequest{
			Method: models.MethodClickwrap, Role: models.RoleApprover, SignatureData: phrase,
		}, models.ClientMeta{})
		assert.Equal(t, models.KindValidation, models.KindOf(err), "phrase %q", phrase)
	}
}

func TestSign_StoreErrorPropagates(t *testing.T) {
	svc, sigs, _ := newTestSignatureService(docWithRevision(models.StatusInReview))
	sigs.err = errors.New("connection reset")

	_, err := svc.Sign(context.Background(), signer, "SOP-001", models.SignRequest{
		Method: models.MethodDrawn, Role: models.RoleApprover, SignatureData: "data:image/png;base64,AAAA",
	}, models.ClientMeta{})

	require.Error(t, err)
	assert.Equal(t, models.KindInternal, models.KindOf(err))
}

func TestWriteManifest(t *testing.T) {
	svc, _, _ := newTestSignatureService(docWithRevision(models.StatusEffective))
	ctx := context.Background()

	_, err := svc.Sign(ctx, signer, "SOP-001", models.SignRequest{
		Method: models.MethodTyped, Role: models.RoleApprover, SignatureData: "Ada Lovelace", Password: "pw",
	}, models.ClientMeta{})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, svc.WriteManifest(ctx, "SOP-001", &buf))

	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")), "manifest must be a PDF")
}

func TestWriteManifest_UnknownDocument(t *testing.T) {
	svc, _, _ := newTestSignatureService(nil)

	err := svc.WriteManifest(context.Background(), "SOP-404", &bytes.Buffer{})
	assert.ErrorIs(t, err, models.ErrDocumentNotFound)
}
