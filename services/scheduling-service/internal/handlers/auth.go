package handlers

import (
	"net/http"
	"strings"

	"github.com/rollcall-app/rollcall/libs/auth"
)

// participantFromRequest extracts and verifies the bearer token minted at
// join time. Handlers that mutate availability require it; the campaign id
// in the claims must match the one addressed by the request.
func participantFromRequest(r *http.Request, secret string) (*auth.Claims, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" || !strings.HasPrefix(header, "Bearer ") {
		return nil, false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	claims, err := auth.ParseAndVerifyHS256(token, secret)
	if err != nil {
		return nil, false
	}
	return claims, true
}
