package dto

// LoginRequest holds login credentials
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest optionally carries the refresh token in the body; the cookie is used otherwise
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token,omitempty"`
}

// AccessTokenResponse returns a freshly minted access token
type AccessTokenResponse struct {
	AccessToken string `json:"access_token"`
}

// LogoutResponse confirms the logout
type LogoutResponse struct {
	Detail string `json:"detail"`
}

// MeResponse identifies the authenticated caller
type MeResponse struct {
	Subject string `json:"subject"`
}
