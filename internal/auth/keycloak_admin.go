package auth

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
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

var (
	ErrKeycloakRequest       = errors.New("keycloak request failed")
	ErrKeycloakNotConfigured = errors.New("missing required Keycloak admin configuration")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrUserNotFound          = errors.New("user not found")
	ErrUserExists            = errors.New("user already exists")
	ErrRoleNotFound          = errors.New("role not found")
	ErrInvalidResponse       = errors.New("invalid response from keycloak")
)

// KeycloakAdminClient provisions staff accounts in the Keycloak realm.
type KeycloakAdminClient struct {
	baseURL      string
	realm        string
	clientID     string
	clientSecret string
	httpClient   *http.Client

	tokenMux    sync.RWMutex
	accessToken string
	tokenExpiry time.Time
}

// KeycloakUser represents a user in Keycloak
type KeycloakUser struct {
	ID         string              `json:"id,omitempty"`
	Username   string              `json:"username"`
	Email      string              `json:"email,omitempty"`
	FirstName  string              `json:"firstName,omitempty"`
	LastName   string              `json:"lastName,omitempty"`
	Enabled    bool                `json:"enabled"`
	Attributes map[string][]string `json:"attributes,omitempty"`
}

// KeycloakRole represents a realm role in Keycloak
type KeycloakRole struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type credential struct {
	Type      string `json:"type"`
	Value     string `json:"value"`
	Temporary bool   `json:"temporary"`
}

// NewKeycloakAdminClient creates a client from cfg.
func NewKeycloakAdminClient(cfg KeycloakConfig) (*KeycloakAdminClient, error) {
	if !cfg.Enabled() {
		return nil, ErrKeycloakNotConfigured
	}
	return &KeycloakAdminClient{
		baseURL:      strings.TrimSuffix(cfg.BaseURL, "/"),
		realm:        cfg.Realm,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// getAdminToken obtains a service-account token, reusing it until a minute
// before expiry.
func (k *KeycloakAdminClient) getAdminToken(ctx context.Context) (string, error) {
	k.tokenMux.RLock()
	if k.accessToken != "" && time.Now().Before(k.tokenExpiry) {
		token := k.accessToken
		k.tokenMux.RUnlock()
		return token, nil
	}
	k.tokenMux.RUnlock()

	k.tokenMux.Lock()
	defer k.tokenMux.Unlock()

	if k.accessToken != "" && time.Now().Before(k.tokenExpiry) {
		return k.accessToken, nil
	}

	tokenURL := fmt.Sprintf("%s/realms/%s/protocol/openid-connect/token", k.baseURL, k.realm)

	data := url.Values{}
	data.Set("grant_type", "client_credentials")
	data.Set("client_id", k.clientID)
	data.Set("client_secret", k.clientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := k.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to request token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		log.WithFields(log.Fields{"status": resp.StatusCode, "body": string(body)}).Error("keycloak admin token request failed")
		return "", ErrUnauthorized
	}

	var result struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}

	k.accessToken = result.AccessToken
	k.tokenExpiry = time.Now().Add(time.Duration(result.ExpiresIn-60) * time.Second)
	return k.accessToken, nil
}

// do sends an authenticated admin API request and checks the status.
func (k *KeycloakAdminClient) do(ctx context.Context, method, path string, payload interface{}, want ...int) (*http.Response, error) {
	token, err := k.getAdminToken(ctx)
	if err != nil {
		return nil, err
	}

	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal payload: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, k.baseURL+"/admin/realms/"+k.realm+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := k.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeycloakRequest, err)
	}
	for _, code := range want {
		if resp.StatusCode == code {
			return resp, nil
		}
	}

	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)
	log.WithFields(log.Fields{
		"method": method,
		"path":   path,
		"status": resp.StatusCode,
		"body":   string(respBody),
	}).Error("keycloak admin request failed")

	switch resp.StatusCode {
	case http.StatusConflict:
		return nil, ErrUserExists
	case http.StatusNotFound:
		return nil, ErrUserNotFound
	}
	return nil, fmt.Errorf("%w: status %d", ErrKeycloakRequest, resp.StatusCode)
}

// CreateUser creates a user and returns the Keycloak user id.
func (k *KeycloakAdminClient) CreateUser(ctx context.Context, user KeycloakUser) (string, error) {
	resp, err := k.do(ctx, http.MethodPost, "/users", user, http.StatusCreated)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	// Location: .../users/{userId}
	location := resp.Header.Get("Location")
	idx := strings.LastIndex(location, "/")
	if idx < 0 || idx == len(location)-1 {
		return "", ErrInvalidResponse
	}
	userID := location[idx+1:]

	log.WithFields(log.Fields{"username": user.Username, "keycloak_id": userID}).Info("created keycloak user")
	return userID, nil
}

// SetPassword sets or resets a user's password.
func (k *KeycloakAdminClient) SetPassword(ctx context.Context, userID, password string, temporary bool) error {
	resp, err := k.do(ctx, http.MethodPut, "/users/"+userID+"/reset-password",
		credential{Type: "password", Value: password, Temporary: temporary}, http.StatusNoContent)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// GetRole fetches a realm role by name.
func (k *KeycloakAdminClient) GetRole(ctx context.Context, roleName string) (*KeycloakRole, error) {
	resp, err := k.do(ctx, http.MethodGet, "/roles/"+url.PathEscape(roleName), nil, http.StatusOK)
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrRoleNotFound
	}
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var role KeycloakRole
	if err := json.NewDecoder(resp.Body).Decode(&role); err != nil {
		return nil, fmt.Errorf("failed to decode role: %w", err)
	}
	return &role, nil
}

// AssignRole assigns a realm role to a user.
func (k *KeycloakAdminClient) AssignRole(ctx context.Context, userID string, role KeycloakRole) error {
	resp, err := k.do(ctx, http.MethodPost, "/users/"+userID+"/role-mappings/realm",
		[]KeycloakRole{role}, http.StatusNoContent)
	if err != nil {
		return err
	}
	resp.Body.Close()
	log.WithFields(log.Fields{"role": role.Name, "keycloak_id": userID}).Info("assigned realm role")
	return nil
}

// DeleteUser removes a user. Used to roll back a failed provisioning.
func (k *KeycloakAdminClient) DeleteUser(ctx context.Context, userID string) error {
	resp, err := k.do(ctx, http.MethodDelete, "/users/"+userID, nil, http.StatusNoContent, http.StatusNotFound)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}
