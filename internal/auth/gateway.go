package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/n-admin/n-admin/internal/authstate"
	"github.com/n-admin/n-admin/internal/shared"
)

// HTTPGateway talks to the auth endpoints over HTTP and satisfies
// authstate.Gateway. The http.Client must carry a cookie jar so the
// session cookie survives between calls.
type HTTPGateway struct {
	baseURL string
	client  *http.Client
}

func NewHTTPGateway(baseURL string, client *http.Client) *HTTPGateway {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPGateway{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

type sessionEnvelope struct {
	User *struct {
		ID        int64  `json:"id"`
		Username  string `json:"username"`
		Email     string `json:"email"`
		Superuser bool   `json:"isSuperAdmin"`
	} `json:"user"`
}

type permissionsEnvelope struct {
	Permissions []string `json:"permissions"`
}

// GetSession fetches the current principal. A 401 yields a nil principal
// with no error, matching an anonymous visitor.
func (g *HTTPGateway) GetSession(ctx context.Context) (*authstate.Principal, error) {
	resp, err := g.get(ctx, "/session")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("session endpoint: unexpected status %d", resp.StatusCode)
	}

	var env sessionEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	if env.User == nil {
		return nil, nil
	}
	return &authstate.Principal{
		ID:        env.User.ID,
		Username:  env.User.Username,
		Email:     env.User.Email,
		Superuser: env.User.Superuser,
	}, nil
}

// GetPermissions fetches the role-derived permission codes for the
// current principal.
func (g *HTTPGateway) GetPermissions(ctx context.Context) ([]string, error) {
	resp, err := g.get(ctx, "/permissions")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, shared.ErrSessionInvalid
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("permissions endpoint: unexpected status %d", resp.StatusCode)
	}

	var env permissionsEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("decode permissions: %w", err)
	}
	return env.Permissions, nil
}

func (g *HTTPGateway) get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	return g.client.Do(req)
}
