// internal/httpserver/token.go
//
// Game tokens: an HS256 JWT binding the bearer to exactly one game ID.
// The token is returned in the /game/new body and also set as an HttpOnly
// cookie; commands accept either. Websocket clients pass it as ?token=.

package httpserver

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var errUnauthorized = errors.New("unauthorized")

// gameClaims is the JWT payload for a game token.
type gameClaims struct {
	GameID string `json:"gameId"`
	jwt.RegisteredClaims
}

// signToken creates a token for gameID that expires after cfg.TokenTTL.
func (s *Server) signToken(gameID string) (string, time.Time, error) {
	now := s.now()
	exp := now.Add(s.cfg.TokenTTL)
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, gameClaims{
		GameID: gameID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	})
	ss, err := t.SignedString([]byte(s.cfg.JWTSecret))
	return ss, exp, err
}

// parseToken verifies tok and returns the game ID it grants.
func (s *Server) parseToken(tok string) (string, error) {
	var claims gameClaims
	t, err := jwt.ParseWithClaims(tok, &claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.JWTSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil || !t.Valid {
		return "", fmt.Errorf("%w: %v", errUnauthorized, err)
	}
	if claims.GameID == "" {
		return "", fmt.Errorf("%w: token has no game", errUnauthorized)
	}
	return claims.GameID, nil
}

// authorize succeeds when the request carries a valid token for gameID.
func (s *Server) authorize(r *http.Request, gameID string) error {
	tok := s.tokenFromRequest(r)
	if tok == "" {
		return fmt.Errorf("%w: no token", errUnauthorized)
	}
	id, err := s.parseToken(tok)
	if err != nil {
		return err
	}
	if id != gameID {
		return fmt.Errorf("%w: token is for another game", errUnauthorized)
	}
	return nil
}

// tokenFromRequest extracts a token from the Authorization header, the
// ?token= query parameter, or the token cookie, in that order.
func (s *Server) tokenFromRequest(r *http.Request) string {
	// Authorization: Bearer <token>
	if a := r.Header.Get("Authorization"); strings.HasPrefix(strings.ToLower(a), "bearer ") {
		return strings.TrimSpace(a[7:])
	}
	if q := r.URL.Query().Get("token"); q != "" {
		return q
	}
	if c, err := r.Cookie(s.cfg.CookieName); err == nil {
		return c.Value
	}
	return ""
}

// setTokenCookie writes the token cookie with appropriate security attributes.
func (s *Server) setTokenCookie(w http.ResponseWriter, token string, exp time.Time) {
	sameSite := http.SameSiteLaxMode
	if s.cfg.CookieSecure {
		sameSite = http.SameSiteNoneMode // required for third-party contexts when Secure
	}
	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.cfg.CookieSecure,
		SameSite: sameSite,
		Expires:  exp,
	})
}
