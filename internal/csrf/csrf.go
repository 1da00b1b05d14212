// Package csrf protects the capture form with the double-submit cookie pattern.
//
// A random token is set in a cookie and echoed back by the client, either as
// a hidden form field or, for script-driven submissions, in the X-CSRF-Token
// header. A cross-site request can make the browser send the cookie but cannot
// read it, so it cannot supply the matching value.
package csrf

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"net/http"
)

const (
	// CookieName is the name of the CSRF token cookie.
	CookieName = "cf_csrf"

	// FormFieldName is the hidden input carrying the token on HTML forms.
	FormFieldName = "csrf_token"

	// HeaderName carries the token on JSON submissions.
	HeaderName = "X-CSRF-Token"

	// TokenLength is the number of random bytes in a token.
	TokenLength = 32

	// CookieMaxAge is the lifetime of the cookie in seconds.
	CookieMaxAge = 2 * 60 * 60
)

// GenerateToken returns 32 random bytes, base64 URL-encoded.
func GenerateToken() (string, error) {
	b := make([]byte, TokenLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// ValidateToken compares the two tokens in constant time.
func ValidateToken(cookieToken, submitted string) bool {
	if cookieToken == "" || submitted == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(cookieToken), []byte(submitted)) == 1
}

// SubmittedToken returns the token the client echoed back. The header wins
// over the form field. The form must already be parsed for form submissions.
func SubmittedToken(r *http.Request) string {
	if token := r.Header.Get(HeaderName); token != "" {
		return token
	}
	return r.PostFormValue(FormFieldName)
}

// ValidateRequest reports whether the request carries a token matching its
// CSRF cookie.
func ValidateRequest(r *http.Request) bool {
	return ValidateToken(TokenFromCookie(r), SubmittedToken(r))
}

// TokenFromCookie returns the cookie token, or "" if there is none.
func TokenFromCookie(r *http.Request) string {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// SetCookie writes the token cookie. It is readable by page scripts so that
// the widget can copy it into the request header.
func SetCookie(w http.ResponseWriter, token string, isSecure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   CookieMaxAge,
		HttpOnly: false,
		Secure:   isSecure,
		SameSite: http.SameSiteStrictMode,
	})
}

// EnsureToken returns the request's existing token or issues a new one.
// Handlers call it when rendering a form.
func EnsureToken(w http.ResponseWriter, r *http.Request, isSecure bool) (string, error) {
	if token := TokenFromCookie(r); token != "" {
		return token, nil
	}

	token, err := GenerateToken()
	if err != nil {
		return "", err
	}
	SetCookie(w, token, isSecure)
	return token, nil
}
