package apiclient

import (
	"context"
	"net/http"
	"net/url"

	"github.com/BradenHooton/pixora/internal/models"
)

const (
	pathSignIn               = "/api/v1/auth/signin"
	pathForgotPassword       = "/api/v1/authRoutes/forgot-password"
	pathResetPassword        = "/api/v1/authRoutes/reset-password/"
	pathInitiateVerification = "/api/v1/email/initiateEmailVerification"
	pathVerifyOTP            = "/api/v1/email/verifyEmailOTP"
	pathCompleteRegistration = "/api/v1/email/completeRegistration"
	pathProfile              = "/api/v1/email/user/profile"
	pathOAuthGoogle          = "/auth/google"
)

func (c *Client) SignIn(ctx context.Context, req models.SignInRequest) (*models.SignInResponse, error) {
	var resp models.SignInResponse
	if err := c.do(ctx, call{method: http.MethodPost, path: pathSignIn, body: req}, &resp); err != nil {
		return nil, err
	}
	if resp.AccessToken == "" {
		return nil, c.malformed(pathSignIn, http.StatusOK, "accessToken")
	}
	return &resp, nil
}

// ForgotPassword asks the backend to mail a reset link and returns its confirmation text
func (c *Client) ForgotPassword(ctx context.Context, email string) (string, error) {
	var resp models.Envelope
	err := c.do(ctx, call{method: http.MethodPost, path: pathForgotPassword, body: models.EmailRequest{Email: email}}, &resp)
	if err != nil {
		return "", err
	}
	return resp.Message, nil
}

// ResetPassword submits a new password for the reset token taken from the emailed link
func (c *Client) ResetPassword(ctx context.Context, token string, req models.ResetPasswordRequest) error {
	path := pathResetPassword + url.PathEscape(token)
	return c.do(ctx, call{method: http.MethodPost, path: path, body: req}, nil)
}

func (c *Client) InitiateEmailVerification(ctx context.Context, email string) error {
	return c.do(ctx, call{method: http.MethodPost, path: pathInitiateVerification, body: models.EmailRequest{Email: email}}, nil)
}

// VerifyEmailOTP exchanges an emailed OTP for the registration tempToken
func (c *Client) VerifyEmailOTP(ctx context.Context, req models.VerifyOTPRequest) (string, error) {
	var resp models.VerifyOTPResponse
	if err := c.do(ctx, call{method: http.MethodPost, path: pathVerifyOTP, body: req}, &resp); err != nil {
		return "", err
	}
	if resp.Data == nil || resp.Data.TempToken == "" {
		return "", c.malformed(pathVerifyOTP, http.StatusOK, "data.tempToken")
	}
	return resp.Data.TempToken, nil
}

// CompleteRegistration creates the account; tempToken authorizes the call
func (c *Client) CompleteRegistration(ctx context.Context, tempToken string, req models.CompleteRegistrationRequest) error {
	return c.do(ctx, call{
		method: http.MethodPost,
		path:   pathCompleteRegistration,
		token:  tempToken,
		body:   req,
	}, nil)
}

func (c *Client) Profile(ctx context.Context, accessToken string) (*models.User, error) {
	var resp models.ProfileResponse
	if err := c.do(ctx, call{method: http.MethodGet, path: pathProfile, token: accessToken}, &resp); err != nil {
		return nil, err
	}
	if resp.User == nil {
		return nil, c.malformed(pathProfile, http.StatusOK, "user")
	}
	return resp.User, nil
}

// OAuthURL is the browser entry point of the Google sign-in flow
func (c *Client) OAuthURL() string {
	return c.baseURL + pathOAuthGoogle
}
