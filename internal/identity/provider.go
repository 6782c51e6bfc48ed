// Package identity adapts the external identity provider behind a narrow
// interface so the auth services never see provider wire details and tests
// can substitute an in-memory fake.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
)

// Typed provider outcomes. Callers switch on these instead of matching
// provider error strings.
var (
	ErrEmailTaken     = errors.New("identity provider: email already registered")
	ErrBadCredentials = errors.New("identity provider: invalid credentials")
	ErrNotFound       = errors.New("identity provider: identity not found")
	ErrUnavailable    = errors.New("identity provider: unavailable")
)

// Provider is the boundary contract with the external identity provider.
type Provider interface {
	CreateIdentity(ctx context.Context, email, password string, metadata map[string]string) (string, error)
	VerifyPassword(ctx context.Context, email, password string) error
	UpdatePassword(ctx context.Context, providerID, newPassword string) error
	DeleteIdentity(ctx context.Context, providerID string) error
	SendVerificationEmail(ctx context.Context, email string) error
}

// HTTPProvider talks to a GoTrue-style identity API. Password verification
// exchanges credentials for a provider token, which is then checked against
// the provider's JWKS before the login is trusted.
type HTTPProvider struct {
	baseURL    string
	serviceKey string
	httpClient *http.Client
	jwks       *keyfunc.JWKS
}

func NewHTTPProvider(baseURL, serviceKey, jwksURL string) (*HTTPProvider, error) {
	jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{
		RefreshInterval:   time.Hour,
		RefreshRateLimit:  5 * time.Minute,
		RefreshUnknownKID: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load provider JWKS: %w", err)
	}

	return &HTTPProvider{
		baseURL:    baseURL,
		serviceKey: serviceKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		jwks:       jwks,
	}, nil
}

func (p *HTTPProvider) CreateIdentity(ctx context.Context, email, password string, metadata map[string]string) (string, error) {
	payload := map[string]any{
		"email":         email,
		"password":      password,
		"user_metadata": metadata,
	}

	var resp struct {
		ID string `json:"id"`
	}
	status, err := p.do(ctx, http.MethodPost, "/admin/users", payload, &resp)
	if err != nil {
		return "", err
	}
	switch {
	case status == http.StatusUnprocessableEntity || status == http.StatusConflict:
		return "", ErrEmailTaken
	case status >= 400:
		return "", fmt.Errorf("%w: create returned status %d", ErrUnavailable, status)
	}
	return resp.ID, nil
}

func (p *HTTPProvider) VerifyPassword(ctx context.Context, email, password string) error {
	payload := map[string]any{
		"email":    email,
		"password": password,
	}

	var resp struct {
		AccessToken string `json:"access_token"`
	}
	status, err := p.do(ctx, http.MethodPost, "/token?grant_type=password", payload, &resp)
	if err != nil {
		return err
	}
	switch {
	case status == http.StatusBadRequest || status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrBadCredentials
	case status >= 400:
		return fmt.Errorf("%w: token endpoint returned status %d", ErrUnavailable, status)
	}

	// The grant succeeded; make sure the returned token really came from the
	// provider before treating the password as verified.
	if _, err := jwt.Parse(resp.AccessToken, p.jwks.Keyfunc); err != nil {
		return fmt.Errorf("%w: token signature check failed: %v", ErrUnavailable, err)
	}
	return nil
}

func (p *HTTPProvider) UpdatePassword(ctx context.Context, providerID, newPassword string) error {
	payload := map[string]any{"password": newPassword}

	status, err := p.do(ctx, http.MethodPut, "/admin/users/"+providerID, payload, nil)
	if err != nil {
		return err
	}
	switch {
	case status == http.StatusNotFound:
		return ErrNotFound
	case status >= 400:
		return fmt.Errorf("%w: update returned status %d", ErrUnavailable, status)
	}
	return nil
}

func (p *HTTPProvider) DeleteIdentity(ctx context.Context, providerID string) error {
	status, err := p.do(ctx, http.MethodDelete, "/admin/users/"+providerID, nil, nil)
	if err != nil {
		return err
	}
	switch {
	case status == http.StatusNotFound:
		return ErrNotFound
	case status >= 400:
		return fmt.Errorf("%w: delete returned status %d", ErrUnavailable, status)
	}
	return nil
}

func (p *HTTPProvider) SendVerificationEmail(ctx context.Context, email string) error {
	payload := map[string]any{
		"type":  "signup",
		"email": email,
	}

	status, err := p.do(ctx, http.MethodPost, "/resend", payload, nil)
	if err != nil {
		return err
	}
	if status >= 400 {
		return fmt.Errorf("%w: resend returned status %d", ErrUnavailable, status)
	}
	return nil
}

func (p *HTTPProvider) do(ctx context.Context, method, path string, payload any, out any) (int, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return 0, err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, body)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.serviceKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < 400 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("%w: bad response body: %v", ErrUnavailable, err)
		}
	} else {
		io.Copy(io.Discard, resp.Body)
	}
	return resp.StatusCode, nil
}
