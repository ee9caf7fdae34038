package dto

// SendCodeRequest asks for a verification code to be texted to a phone
type SendCodeRequest struct {
	PhoneNumber string `json:"phone_number" validate:"required"`
	Purpose     string `json:"purpose" validate:"required,oneof=find_account password_reset"`
}

// SendCodeResponse confirms the dispatch. Code is only present in debug builds.
type SendCodeResponse struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// VerifyCodeRequest submits a received code
type VerifyCodeRequest struct {
	PhoneNumber string `json:"phone_number" validate:"required"`
	Purpose     string `json:"purpose" validate:"required,oneof=find_account password_reset"`
	Code        string `json:"code" validate:"required"`
}

// FindAccountRequest looks up the account registered to a verified phone
type FindAccountRequest struct {
	PhoneNumber string `json:"phone_number" validate:"required"`
}

// FindAccountResponse reports whether an account exists. Identifier is masked.
type FindAccountResponse struct {
	Exists     bool   `json:"exists"`
	Identifier string `json:"identifier,omitempty"`
	Message    string `json:"message"`
}

// PasswordResetRequest exchanges a verified phone and identifier for a reset grant
type PasswordResetRequest struct {
	Identifier  string `json:"identifier" validate:"required"`
	PhoneNumber string `json:"phone_number" validate:"required"`
	Code        string `json:"code,omitempty"`
}

// PasswordResetConfirmRequest sets the new password. The grant travels in a cookie.
type PasswordResetConfirmRequest struct {
	NewPassword        string `json:"new_password" validate:"required"`
	NewPasswordConfirm string `json:"new_password_confirm" validate:"required"`
}

// MessageResponse carries a user-facing message
type MessageResponse struct {
	Message string `json:"message"`
}
