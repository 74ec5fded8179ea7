package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TicketClaims is the payload of a socket ticket: a short-lived JWT a
// logged-in user exchanges its session for, then presents on the websocket
// upgrade where cookies are awkward (non-browser clients, cross-origin).
type TicketClaims struct {
	UserID int `json:"user_id"`
	jwt.RegisteredClaims
}

// IssueTicket creates a signed ticket for the given user.
func (a *Auth) IssueTicket(userID int, ttl time.Duration) (string, error) {
	claims := &TicketClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "askly-chat",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.ticketSecret)
}

// ValidateTicket checks signature and expiry and returns the user ID.
func (a *Auth) ValidateTicket(tokenString string) (int, error) {
	token, err := jwt.ParseWithClaims(tokenString, &TicketClaims{}, func(token *jwt.Token) (interface{}, error) {
		return a.ticketSecret, nil
	})
	if err != nil {
		return 0, err
	}

	if claims, ok := token.Claims.(*TicketClaims); ok && token.Valid {
		return claims.UserID, nil
	}
	return 0, jwt.ErrSignatureInvalid
}
