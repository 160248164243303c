package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/mamadbah2/stylishcuts/internal/config"
)

// ErrInvalidCredentials is returned when the provider rejects an email/password pair.
var ErrInvalidCredentials = errors.New("invalid email or password")

// Client exposes the Identity Toolkit operations used by the application.
type Client interface {
	SignInWithPassword(ctx context.Context, email, password string) (*SignInResponse, error)
}

// APIClient is a resty-backed implementation of Client.
type APIClient struct {
	httpClient *resty.Client
	apiKey     string
}

// NewClient builds an Identity Toolkit client from the auth configuration.
func NewClient(cfg config.AuthConfig) *APIClient {
	restyClient := resty.New()
	restyClient.
		SetBaseURL(strings.TrimSuffix(cfg.FirebaseBaseURL, "/")).
		SetHeader("Content-Type", "application/json").
		SetTimeout(15 * time.Second)

	return &APIClient{
		httpClient: restyClient,
		apiKey:     cfg.FirebaseAPIKey,
	}
}

// SignInResponse mirrors the successful accounts:signInWithPassword payload.
type SignInResponse struct {
	LocalID      string `json:"localId"`
	Email        string `json:"email"`
	DisplayName  string `json:"displayName"`
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn"`
	Registered   bool   `json:"registered"`
}

type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// credential failures reported by Identity Toolkit.
var rejectedMessages = []string{"EMAIL_NOT_FOUND", "INVALID_PASSWORD", "INVALID_LOGIN_CREDENTIALS", "USER_DISABLED", "INVALID_EMAIL"}

func (c *APIClient) SignInWithPassword(ctx context.Context, email, password string) (*SignInResponse, error) {
	payload := map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}

	result := new(SignInResponse)
	apiErr := new(apiError)

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetQueryParam("key", c.apiKey).
		SetBody(payload).
		SetResult(result).
		SetError(apiErr).
		Post("/accounts:signInWithPassword")
	if err != nil {
		return nil, fmt.Errorf("sign in with password: %w", err)
	}

	if resp.StatusCode() >= http.StatusBadRequest {
		message := apiErr.Error.Message
		for _, rejected := range rejectedMessages {
			if strings.HasPrefix(message, rejected) {
				return nil, fmt.Errorf("%s: %w", message, ErrInvalidCredentials)
			}
		}
		return nil, fmt.Errorf("identity api error: code=%d, message=%s", resp.StatusCode(), message)
	}

	return result, nil
}
