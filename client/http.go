package client

import (
	"bytes"
	"chat-stress/contract"
	"chat-stress/domain"
	"chat-stress/errors"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTP talks to the backend's request/response endpoints.
type HTTP struct {
	Base string
	HTTP *http.Client
}

func NewHTTP(base string, timeout time.Duration) *HTTP {
	return &HTTP{
		Base: strings.TrimRight(base, "/"),
		HTTP: &http.Client{Timeout: timeout},
	}
}

type loginResponse struct {
	Token string `json:"token"`
	ID    string `json:"id"`
	UUID  string `json:"uuid"`
}

// Register treats 200/201 as created and 409 as already-exists.
func (c *HTTP) Register(ctx context.Context, identity domain.Identity) (domain.RegisterStatus, error) {
	resp, err := c.do(ctx, http.MethodPost, "/register", "", identity)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", errors.ErrRegistrationFailed, err)
	}
	defer drain(resp)

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		return domain.Created, nil
	case http.StatusConflict:
		return domain.AlreadyExists, nil
	default:
		return 0, fmt.Errorf("%w: %w %s", errors.ErrRegistrationFailed, errors.ErrUnexpectedStatus, resp.Status)
	}
}

// Login returns the bearer token and the backend id of the identity.
// Older backends report the id under "uuid".
func (c *HTTP) Login(ctx context.Context, identity domain.Identity) (domain.Credentials, error) {
	resp, err := c.do(ctx, http.MethodPost, "/login", "", identity)
	if err != nil {
		return domain.Credentials{}, fmt.Errorf("%w: %v", errors.ErrLoginFailed, err)
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusOK {
		return domain.Credentials{}, fmt.Errorf("%w: %w %s", errors.ErrLoginFailed, errors.ErrUnexpectedStatus, resp.Status)
	}
	var out loginResponse
	if err = json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return domain.Credentials{}, fmt.Errorf("%w: %v", errors.ErrLoginFailed, err)
	}
	id := out.ID
	if id == "" {
		id = out.UUID
	}
	if out.Token == "" || id == "" {
		return domain.Credentials{}, fmt.Errorf("%w: %w", errors.ErrLoginFailed, errors.ErrMissingToken)
	}
	return domain.Credentials{Identity: identity, Token: out.Token, ID: id}, nil
}

// Send posts a message out-of-band. Only 201 counts as delivered.
func (c *HTTP) Send(ctx context.Context, token string, message domain.Message) error {
	resp, err := c.do(ctx, http.MethodPost, "/send", token, message)
	if err != nil {
		return fmt.Errorf("%w: %v", errors.ErrDeliveryFailed, err)
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("%w: %w %s", errors.ErrDeliveryFailed, errors.ErrUnexpectedStatus, resp.Status)
	}
	return nil
}

// DeleteAllUsers returns the status code of the bulk delete even when it is not a success.
func (c *HTTP) DeleteAllUsers(ctx context.Context) (int, error) {
	resp, err := c.do(ctx, http.MethodDelete, "/users", "", nil)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", errors.ErrCleanupFailed, err)
	}
	defer drain(resp)

	if resp.StatusCode/100 != 2 {
		return resp.StatusCode, fmt.Errorf("%w: %w %s", errors.ErrCleanupFailed, errors.ErrUnexpectedStatus, resp.Status)
	}
	return resp.StatusCode, nil
}

func (c *HTTP) DeleteUser(ctx context.Context, email, adminToken string) error {
	resp, err := c.do(ctx, http.MethodDelete, "/users/"+url.PathEscape(email), adminToken, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", errors.ErrCleanupFailed, err)
	}
	defer drain(resp)

	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("%w: %w %s", errors.ErrCleanupFailed, errors.ErrUnexpectedStatus, resp.Status)
	}
	return nil
}

func (c *HTTP) do(ctx context.Context, method, path, token string, in any) (*http.Response, error) {
	var body io.Reader
	if in != nil {
		buf := new(bytes.Buffer)
		if err := json.NewEncoder(buf).Encode(in); err != nil {
			return nil, err
		}
		body = buf
	}
	req, err := http.NewRequestWithContext(ctx, method, c.Base+path, body)
	if err != nil {
		return nil, err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return c.HTTP.Do(req)
}

// drain lets the transport reuse the connection.
func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}

var _ contract.IBackend = (*HTTP)(nil)
