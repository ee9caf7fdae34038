package handlers

import (
	"net/http"
	"time"
)

const (
	// ResetCookieName holds the password reset grant between request and confirm
	ResetCookieName = "pw_reset_token"
	// ResetCookiePath scopes the reset grant to the confirm endpoint
	ResetCookiePath = "/api/password/reset/confirm"
	// RefreshCookieName holds the refresh token issued at login
	RefreshCookieName = "refresh_token"
)

// CookieConfig controls attributes shared by every cookie the API sets
type CookieConfig struct {
	Secure bool
}

func (c CookieConfig) set(w http.ResponseWriter, name, value, path string, ttl time.Duration) {
	cookie := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	if ttl > 0 {
		cookie.MaxAge = int(ttl.Seconds())
		cookie.Expires = time.Now().Add(ttl)
	}
	http.SetCookie(w, cookie)
}

func (c CookieConfig) clear(w http.ResponseWriter, name, path string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     path,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (c CookieConfig) setResetGrant(w http.ResponseWriter, token string, ttl time.Duration) {
	c.set(w, ResetCookieName, token, ResetCookiePath, ttl)
}

func (c CookieConfig) clearResetGrant(w http.ResponseWriter) {
	c.clear(w, ResetCookieName, ResetCookiePath)
}

func (c CookieConfig) setRefreshToken(w http.ResponseWriter, token string, ttl time.Duration) {
	c.set(w, RefreshCookieName, token, "/", ttl)
}

func (c CookieConfig) clearRefreshToken(w http.ResponseWriter) {
	c.clear(w, RefreshCookieName, "/")
}

func cookieValue(r *http.Request, name string) string {
	cookie, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return cookie.Value
}
