package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Julie-03/Kapee/internal/util"
	"github.com/Julie-03/Kapee/pkg/domain"
)

// Client calls the user service over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// APIError represents a user service error response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// NewClient constructs a user service client.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = util.NewHTTPClient("auth", 5*time.Second)
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// Login exchanges credentials for a bearer token and the user record.
func (c *Client) Login(ctx context.Context, email, password string) (domain.User, string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return domain.User{}, "", errors.New("email and password required")
	}
	payload := map[string]string{"email": email, "password": password}
	var resp loginResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api_v1/user/login", payload, &resp); err != nil {
		return domain.User{}, "", err
	}
	if resp.User == nil || strings.TrimSpace(resp.Token) == "" {
		return domain.User{}, "", errors.New("login failed: invalid response")
	}
	user := *resp.User
	if user.Role == "" {
		user.Role = domain.RoleUser
	}
	return user, resp.Token, nil
}

// Register creates an account. It does not start a session.
func (c *Client) Register(ctx context.Context, username, email, password string) error {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return errors.New("email and password required")
	}
	payload := map[string]string{
		"username": strings.TrimSpace(username),
		"email":    email,
		"password": password,
	}
	return c.doJSON(ctx, http.MethodPost, "/api_v1/user/userRegistration", payload, nil)
}

func (c *Client) doJSON(ctx context.Context, method, path string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(util.EnsureRequestID(ctx), method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		var errResp struct {
			Message string `json:"message"`
			Error   string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		msg := errResp.Message
		if msg == "" {
			msg = errResp.Error
		}
		if msg == "" {
			msg = resp.Status
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return err
	}
	return nil
}

type loginResponse struct {
	Token string       `json:"token"`
	User  *domain.User `json:"user"`
}
