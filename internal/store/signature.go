package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/qmsworks/qms/internal/models"
)

// SignatureStore handles electronic signatures on document revisions.
type SignatureStore struct {
	Base
}

// NewSignatureStore creates a SignatureStore.
func NewSignatureStore(base Base) *SignatureStore {
	return &SignatureStore{Base: base}
}

// ListSignatures returns the signatures on a document's latest revision,
// oldest first.
func (s *SignatureStore) ListSignatures(ctx context.Context, code string) ([]models.Signature, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := s.beginReadTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing signatures: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // read-only.

	var docID string
	if err := tx.QueryRow(ctx, `SELECT id FROM documents WHERE code = $1`, code).Scan(&docID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrDocumentNotFound
		}

		return nil, fmt.Errorf("looking up document %s: %w", code, err)
	}

	rows, err := tx.Query(ctx, `
		SELECT s.id, s.document_id, s.revision_id, s.user_id, s.method, s.role, s.signed_at,
			r.number, u.name, u.email
		FROM signatures s
		JOIN document_revisions r ON r.id = s.revision_id
		JOIN users u ON u.id = s.user_id
		WHERE s.revision_id = (
			SELECT id FROM document_revisions WHERE document_id = $1 ORDER BY number DESC LIMIT 1
		)
		ORDER BY s.signed_at, s.id`, docID)
	if err != nil {
		return nil, fmt.Errorf("querying signatures: %w", err)
	}
	defer rows.Close()

	sigs := []models.Signature{}

	for rows.Next() {
		var (
			sig    models.Signature
			method string
			role   string
		)

		if err := rows.Scan(&sig.ID, &sig.DocumentID, &sig.RevisionID, &sig.UserID, &method, &role,
			&sig.SignedAt, &sig.RevisionNumber, &sig.User.Name, &sig.User.Email); err != nil {
			return nil, fmt.Errorf("scanning signature: %w", err)
		}

		sig.DocumentCode = code
		sig.Method = models.SignatureMethod(method)
		sig.Role = models.SignatureRole(role)
		sigs = append(sigs, sig)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating signatures: %w", err)
	}

	return sigs, nil
}

// HasSigned reports whether userID already signed the given revision.
func (s *SignatureStore) HasSigned(ctx context.Context, revisionID, userID string) (bool, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var exists bool

	err := s.Pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM signatures WHERE revision_id = $1 AND user_id = $2)`,
		revisionID, userID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking existing signature: %w", err)
	}

	return exists, nil
}

// CreateSignature stores sig with its payload sealed to the signature ID and
// appends entry, linked to the new signature, in the same transaction.
// The document row is share-locked first, so a concurrent transition or new
// revision either commits before the check or waits for the signature.
// ErrNotSignable is returned when the document has been retired or
// sig.RevisionID is no longer its latest revision. sig.ID and sig.SignedAt
// are set on success.
func (s *SignatureStore) CreateSignature(
	ctx context.Context, sig *models.Signature, entry *models.AuditEntry,
) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	sig.ID = uuid.NewString()

	sealed, err := s.Crypto.Encrypt(ctx, sig.ID, []byte(sig.Payload))
	if err != nil {
		return fmt.Errorf("sealing signature payload: %w", err)
	}

	tx, err := s.beginTx(ctx)
	if err != nil {
		return fmt.Errorf("creating signature: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // best-effort rollback after commit.

	if err := confirmSignable(ctx, tx, sig.DocumentID, sig.RevisionID); err != nil {
		return err
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO signatures (id, document_id, revision_id, user_id, method, role, payload, user_agent, client_ip)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING signed_at`,
		sig.ID, sig.DocumentID, sig.RevisionID, sig.UserID, string(sig.Method), string(sig.Role),
		sealed, sig.UserAgent, sig.ClientIP,
	).Scan(&sig.SignedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return models.ErrAlreadySigned
		}

		return fmt.Errorf("inserting signature: %w", err)
	}

	entry.SignatureID = sig.ID
	entry.Timestamp = sig.SignedAt

	if err := s.appendAudit(ctx, tx, entry); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing signature: %w", err)
	}

	s.committed(entry)

	return nil
}

// confirmSignable share-locks the document and checks that it is not retired
// and that revisionID is still its latest revision. The revision is read in a
// second statement so it sees anything committed while the lock was awaited.
func confirmSignable(ctx context.Context, tx pgx.Tx, documentID, revisionID string) error {
	var status string

	err := tx.QueryRow(ctx, `SELECT status FROM documents WHERE id = $1 FOR SHARE`, documentID).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.ErrDocumentNotFound
		}

		return fmt.Errorf("locking document: %w", err)
	}

	if models.DocumentStatus(status) == models.StatusRetired {
		return models.ErrNotSignable
	}

	var latest string

	err = tx.QueryRow(ctx,
		`SELECT id FROM document_revisions WHERE document_id = $1 ORDER BY number DESC LIMIT 1`, documentID,
	).Scan(&latest)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.ErrNotSignable
		}

		return fmt.Errorf("reading latest revision: %w", err)
	}

	if latest != revisionID {
		return models.ErrNotSignable
	}

	return nil
}

// OpenPayload returns the decrypted payload of a stored signature.
func (s *SignatureStore) OpenPayload(ctx context.Context, signatureID string) (string, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var sealed string

	err := s.Pool.QueryRow(ctx, `SELECT payload FROM signatures WHERE id = $1`, signatureID).Scan(&sealed)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", models.ErrRecordNotFound
		}

		return "", fmt.Errorf("reading signature payload: %w", err)
	}

	plain, err := s.Crypto.Decrypt(ctx, signatureID, sealed)
	if err != nil {
		return "", err
	}

	return string(plain), nil
}
