package client

import "context"

// SignatureService handles document signatures.
type SignatureService struct {
	c *Client
}

// List returns the signatures on a document's latest revision.
func (s *SignatureService) List(ctx context.Context, code string) ([]Signature, error) {
	var resp struct {
		Signatures []Signature `json:"signatures"`
	}
	if err := s.c.get(ctx, documentPath(code)+"/signatures", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Signatures, nil
}

// Sign records the signed-in user's signature on a document.
func (s *SignatureService) Sign(ctx context.Context, code string, req SignRequest) (*Signature, error) {
	var sig Signature
	if err := s.c.post(ctx, documentPath(code)+"/sign", req, &sig); err != nil {
		return nil, err
	}
	return &sig, nil
}
