package validation

type SignInForm struct {
	Email    string `json:"email" validate:"webemail"`
	Password string `json:"password" validate:"min=8"`
}

type EmailForm struct {
	Email string `json:"email" validate:"webemail"`
}

type OTPForm struct {
	OTP string `json:"otp" validate:"required"`
}

type ProfileForm struct {
	Username        string `json:"username" validate:"required"`
	Password        string `json:"password" validate:"min=8"`
	ConfirmPassword string `json:"confirmPassword" validate:"eqfield=Password"`
}

type ResetForm struct {
	Password        string `json:"password" validate:"min=8"`
	ConfirmPassword string `json:"confirmPassword" validate:"eqfield=Password"`
}
