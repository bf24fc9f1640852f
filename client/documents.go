package client

import (
	"context"
	"io"
	"net/url"
	"strconv"
)

// DocumentService handles controlled-document operations.
type DocumentService struct {
	c *Client
}

func documentPath(code string) string {
	return "/api/cmmc/documents/" + url.PathEscape(code)
}

// List returns one page of documents, optionally filtered by status.
func (s *DocumentService) List(ctx context.Context, status string, page, limit int) (*DocumentPage, error) {
	params := url.Values{}
	if status != "" {
		params.Set("status", status)
	}
	if page > 0 {
		params.Set("page", strconv.Itoa(page))
	}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	var resp DocumentPage
	if err := s.c.get(ctx, "/api/cmmc/documents", params, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Get returns a document with its latest revision.
func (s *DocumentService) Get(ctx context.Context, code string) (*Document, error) {
	var doc Document
	if err := s.c.get(ctx, documentPath(code), nil, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Create creates a draft document with its first revision.
func (s *DocumentService) Create(ctx context.Context, req CreateDocumentRequest) (*Document, error) {
	var doc Document
	if err := s.c.post(ctx, "/api/cmmc/documents", req, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// AddRevision adds a revision to a draft document.
func (s *DocumentService) AddRevision(ctx context.Context, code string, req AddRevisionRequest) (*Document, error) {
	var doc Document
	if err := s.c.post(ctx, documentPath(code)+"/revisions", req, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Transition applies a lifecycle event (submit, approve, reject, retire, revise).
func (s *DocumentService) Transition(ctx context.Context, code string, req TransitionRequest) (*Document, error) {
	var doc Document
	if err := s.c.post(ctx, documentPath(code)+"/transitions", req, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Trail returns the audit entries of one document, oldest first.
func (s *DocumentService) Trail(ctx context.Context, code string) ([]AuditEntry, error) {
	var resp struct {
		Logs []AuditEntry `json:"logs"`
	}
	if err := s.c.get(ctx, documentPath(code)+"/audit", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Logs, nil
}

// Manifest streams the signature manifest PDF of a document to w.
func (s *DocumentService) Manifest(ctx context.Context, code string, w io.Writer) error {
	return s.c.download(ctx, documentPath(code)+"/signatures/manifest", nil, w)
}
