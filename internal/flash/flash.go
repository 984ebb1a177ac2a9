// Package flash carries one-shot messages across a redirect in a short-lived cookie.
package flash

import (
	"encoding/base64"
	"net/http"
)

const cookieName = "flash"

// Set stores msg for the next request of the client.
func Set(response http.ResponseWriter, msg string) {
	http.SetCookie(response, &http.Cookie{
		Name:     cookieName,
		Value:    base64.RawURLEncoding.EncodeToString([]byte(msg)),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// Pop returns the pending message, if any, and clears it.
func Pop(response http.ResponseWriter, request *http.Request) string {
	cookie, err := request.Cookie(cookieName)
	if err != nil {
		return ""
	}

	http.SetCookie(response, &http.Cookie{
		Name:     cookieName,
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	msg, err := base64.RawURLEncoding.DecodeString(cookie.Value)
	if err != nil {
		return ""
	}

	return string(msg)
}
