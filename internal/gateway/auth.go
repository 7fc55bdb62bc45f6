package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrUserNotFound is returned when a login name matches no user
var ErrUserNotFound = errors.New("user not found")

// AuthClient talks to the auth service and the users table of the backend
// project at BaseURL (the project root, not the functions path).
type AuthClient struct {
	BaseURL string
	AnonKey string
	HTTP    *http.Client
}

// NewAuthClient creates an auth client
func NewAuthClient(baseURL, anonKey string) *AuthClient {
	return &AuthClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		AnonKey: anonKey,
		HTTP:    &http.Client{Timeout: DefaultTimeout},
	}
}

// AuthUser is the identity the auth service returns
type AuthUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// TokenGrant is an issued access token
type TokenGrant struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	TokenType    string   `json:"token_type"`
	ExpiresIn    int64    `json:"expires_in"`
	ExpiresAt    int64    `json:"expires_at"`
	User         AuthUser `json:"user"`
}

// Expiry returns when the access token expires
func (g *TokenGrant) Expiry(now time.Time) time.Time {
	if g.ExpiresAt > 0 {
		return time.Unix(g.ExpiresAt, 0)
	}
	return now.Add(time.Duration(g.ExpiresIn) * time.Second)
}

// Profile is a row of the users table
type Profile struct {
	Role   string `json:"role"`
	Nama   string `json:"nama"`
	Outlet string `json:"outlet"`
}

// SignInWithPassword exchanges an email and password for a token
func (a *AuthClient) SignInWithPassword(ctx context.Context, email, password string) (*TokenGrant, error) {
	body := map[string]string{"email": email, "password": password}
	var grant TokenGrant
	if err := a.do(ctx, http.MethodPost, "/auth/v1/token?grant_type=password", "", body, &grant); err != nil {
		return nil, err
	}
	return &grant, nil
}

// RefreshSession exchanges a refresh token for a new grant
func (a *AuthClient) RefreshSession(ctx context.Context, refreshToken string) (*TokenGrant, error) {
	body := map[string]string{"refresh_token": refreshToken}
	var grant TokenGrant
	if err := a.do(ctx, http.MethodPost, "/auth/v1/token?grant_type=refresh_token", "", body, &grant); err != nil {
		return nil, err
	}
	return &grant, nil
}

// LookupEmailByName finds the email of the user with the given display
// name, so users can log in by name.
func (a *AuthClient) LookupEmailByName(ctx context.Context, nama string) (string, error) {
	q := url.Values{}
	q.Set("select", "email")
	q.Set("nama", "eq."+nama)
	var rows []struct {
		Email string `json:"email"`
	}
	if err := a.do(ctx, http.MethodGet, "/rest/v1/users?"+q.Encode(), "", nil, &rows); err != nil {
		return "", err
	}
	if len(rows) != 1 || rows[0].Email == "" {
		return "", fmt.Errorf("%w: %s", ErrUserNotFound, nama)
	}
	return rows[0].Email, nil
}

// FetchProfile reads the role, name and outlet of a user
func (a *AuthClient) FetchProfile(ctx context.Context, accessToken, userID string) (*Profile, error) {
	q := url.Values{}
	q.Set("select", "role,nama,outlet")
	q.Set("id", "eq."+userID)
	var rows []Profile
	if err := a.do(ctx, http.MethodGet, "/rest/v1/users?"+q.Encode(), accessToken, nil, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, userID)
	}
	return &rows[0], nil
}

// do executes an auth request. Without a token the anon key is the bearer.
func (a *AuthClient) do(ctx context.Context, method, path, token string, body, result any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token == "" {
		token = a.AnonKey
	}
	req.Header.Set("apikey", a.AnonKey)
	req.Header.Set("Authorization", "Bearer "+token)

	client := a.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	c := &Client{HTTP: client}
	resp := c.send(ctx, req)
	if resp.Err != nil {
		var apiErr *APIError
		if errors.As(resp.Err, &apiErr) && (apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusBadRequest) {
			return fmt.Errorf("%w: %s", ErrAuthRequired, apiErr.Error())
		}
		return resp.Err
	}
	return resp.Decode(result)
}
