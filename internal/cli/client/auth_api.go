package client

import (
	"context"
	"net/http"

	"github.com/coinvest-dev/coinvest/internal/models"
)

// RegisterRequest represents the registration form
type RegisterRequest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterResult is what the backend returns after sign-up. The account
// still needs email verification before it can log in.
type RegisterResult struct {
	Message string `json:"-"`
	UserID  string `json:"userId,omitempty"`
	Email   string `json:"email,omitempty"`
}

// userPayload is the data shape of /auth/login and /auth/me
type userPayload struct {
	User *models.User `json:"user"`
}

// Register creates an account
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*RegisterResult, error) {
	var res RegisterResult
	env, err := c.do(ctx, http.MethodPost, "/auth/register", nil, req, &res)
	if err != nil {
		return nil, err
	}
	res.Message = env.Message
	return &res, nil
}

// Login authenticates with email and password. The backend answers with
// a session cookie and the user record.
func (c *Client) Login(ctx context.Context, email, password string) (*models.User, error) {
	var payload userPayload
	body := map[string]string{"email": email, "password": password}
	if _, err := c.do(ctx, http.MethodPost, LoginPath, nil, body, &payload); err != nil {
		return nil, err
	}
	if payload.User == nil {
		return nil, &APIError{Kind: KindDecode, Method: http.MethodPost, Path: LoginPath, Message: "login response did not include a user"}
	}
	return payload.User, nil
}

// Logout ends the session on the backend
func (c *Client) Logout(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodPost, "/auth/logout", nil, nil, nil)
	return err
}

// Me returns the user behind the current session
func (c *Client) Me(ctx context.Context) (*models.User, error) {
	var payload userPayload
	if _, err := c.do(ctx, http.MethodGet, "/auth/me", nil, nil, &payload); err != nil {
		return nil, err
	}
	if payload.User == nil {
		return nil, &APIError{Kind: KindDecode, Method: http.MethodGet, Path: "/auth/me", Message: "response did not include a user"}
	}
	return payload.User, nil
}

// SendOTP emails a verification code
func (c *Client) SendOTP(ctx context.Context, email string) (string, error) {
	env, err := c.do(ctx, http.MethodPost, "/auth/send-otp", nil, map[string]string{"email": email}, nil)
	if err != nil {
		return "", err
	}
	return env.Message, nil
}

// VerifyOTP confirms the email address with the emailed code
func (c *Client) VerifyOTP(ctx context.Context, email, code string) (string, error) {
	env, err := c.do(ctx, http.MethodPost, "/auth/verify-otp", nil, map[string]string{"email": email, "otp": code}, nil)
	if err != nil {
		return "", err
	}
	return env.Message, nil
}

// ForgotPassword requests a password reset email
func (c *Client) ForgotPassword(ctx context.Context, email string) (string, error) {
	env, err := c.do(ctx, http.MethodPost, "/auth/forgot-password", nil, map[string]string{"email": email}, nil)
	if err != nil {
		return "", err
	}
	return env.Message, nil
}

// ResetPassword sets a new password using the emailed reset token
func (c *Client) ResetPassword(ctx context.Context, token, password string) (string, error) {
	env, err := c.do(ctx, http.MethodPost, "/auth/reset-password", nil, map[string]string{"token": token, "password": password}, nil)
	if err != nil {
		return "", err
	}
	return env.Message, nil
}
