package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/desertthunder/revu/internal/models"
	"github.com/desertthunder/revu/internal/shared"
)

// AuthResponse is returned by login, OTP verification and refresh.
type AuthResponse struct {
	AccessToken       string       `json:"accessToken"`
	User              *models.User `json:"user"`
	RequiresTwoFactor bool         `json:"requiresTwoFactor"`
}

// MessageResponse is the body of side-effect endpoints.
type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

// AuthClient calls the /auth endpoints. None of them take part in refresh.
type AuthClient struct {
	api *APIService
}

func NewAuthClient(api *APIService) *AuthClient {
	return &AuthClient{api: api}
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (c *AuthClient) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	return c.authenticate(ctx, "/auth/login", credentials{Email: email, Password: password})
}

func (c *AuthClient) VerifyOTP(ctx context.Context, otp string) (*AuthResponse, error) {
	return c.authenticate(ctx, "/auth/verify-otp", map[string]string{"otp": otp})
}

// Refresh runs through the coordinator so it never overlaps a refresh
// triggered by a failing request.
func (c *AuthClient) Refresh(ctx context.Context) (*AuthResponse, error) {
	return c.api.Refresher().RefreshSession(ctx)
}

func (c *AuthClient) Signup(ctx context.Context, email, password string) (*MessageResponse, error) {
	return c.message(ctx, "/auth/signup", credentials{Email: email, Password: password})
}

func (c *AuthClient) Logout(ctx context.Context) error {
	_, err := c.api.Send(ctx, http.MethodPost, "/auth/logout", nil)
	return err
}

func (c *AuthClient) ForgotPassword(ctx context.Context, email string) (*MessageResponse, error) {
	return c.message(ctx, "/auth/forgot-password", map[string]string{"email": email})
}

func (c *AuthClient) VerifyResetToken(ctx context.Context, token string) (*MessageResponse, error) {
	return c.message(ctx, "/auth/verify-reset-token", map[string]string{"token": token})
}

func (c *AuthClient) ResetPassword(ctx context.Context, token, password string) (*MessageResponse, error) {
	return c.message(ctx, "/auth/reset-password", map[string]string{"token": token, "password": password})
}

// VerifyEmail fails when the server answers 2xx with success=false.
func (c *AuthClient) VerifyEmail(ctx context.Context, token string) (*MessageResponse, error) {
	msg, err := c.message(ctx, "/auth/verify-email", map[string]string{"token": token})
	if err != nil {
		return nil, err
	}
	if !msg.Success {
		return msg, fmt.Errorf("%w: %s", shared.ErrAuthFailed, msg.Error)
	}
	return msg, nil
}

func (c *AuthClient) authenticate(ctx context.Context, path string, body any) (*AuthResponse, error) {
	resp, err := c.api.Send(ctx, http.MethodPost, path, body)
	if err != nil {
		return nil, err
	}
	var out AuthResponse
	if err := resp.Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *AuthClient) message(ctx context.Context, path string, body any) (*MessageResponse, error) {
	resp, err := c.api.Send(ctx, http.MethodPost, path, body)
	if err != nil {
		return nil, err
	}
	// The envelope is the message itself. A 2xx without a JSON body counts as success.
	out := MessageResponse{Success: true}
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return &MessageResponse{Success: true}, nil
	}
	return &out, nil
}
