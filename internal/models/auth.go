package models

// Envelope is the common shape of every backend response
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// SignInRequest is the body of POST /api/v1/auth/signin
type SignInRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe bool   `json:"rememberMe"`
}

// SignInResponse is returned by a successful sign-in
type SignInResponse struct {
	Envelope
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	User         *User  `json:"user,omitempty"`
}

// EmailRequest is used by forgot-password and initiate-email-verification
type EmailRequest struct {
	Email string `json:"email"`
}

// ResetPasswordRequest is the body of POST /api/v1/authRoutes/reset-password/{token}
type ResetPasswordRequest struct {
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// VerifyOTPRequest is the body of POST /api/v1/email/verifyEmailOTP
type VerifyOTPRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

// VerifyOTPResponse carries the short-lived registration token
type VerifyOTPResponse struct {
	Envelope
	Data *VerifyOTPData `json:"data,omitempty"`
}

type VerifyOTPData struct {
	TempToken string `json:"tempToken"`
}

// CompleteRegistrationRequest is the body of POST /api/v1/email/completeRegistration
type CompleteRegistrationRequest struct {
	Email           string `json:"email"`
	Username        string `json:"username"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// ProfileResponse is returned by GET /api/v1/email/user/profile
type ProfileResponse struct {
	Envelope
	User *User `json:"user,omitempty"`
}
