package client

import "context"

// AuthService handles login and the current session.
type AuthService struct {
	c *Client
}

// Login authenticates and stores the returned token in the session.
func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginResponse, error) {
	var resp LoginResponse
	body := map[string]string{"username": username, "password": password}
	if err := s.c.post(ctx, "/api/auth/login", body, &resp); err != nil {
		return nil, err
	}
	if err := s.c.session.Set(resp.Token, resp.User); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Me returns the signed-in user as the server sees it.
func (s *AuthService) Me(ctx context.Context) (*User, error) {
	var u User
	if err := s.c.get(ctx, "/api/auth/me", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Logout clears the session. Tokens are stateless, so the server is not contacted.
func (s *AuthService) Logout() error {
	return s.c.session.Clear()
}
