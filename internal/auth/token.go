package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims represents the claims in a gateway session token
type SessionClaims struct {
	SessionID string `json:"session_id"`
	Role      string `json:"role"` // "device" or "user"
	jwt.RegisteredClaims
}

// RoomGrant describes the room-join permissions embedded in a relay token.
type RoomGrant struct {
	Room     string `json:"room"`
	Identity string `json:"identity"`
	Name     string `json:"name,omitempty"`
}

// RoomClaims represents the claims in a media-relay room join token
type RoomClaims struct {
	Grant RoomGrant `json:"grant"`
	jwt.RegisteredClaims
}

// Signer mints and validates HS256 tokens for the gateway and the media
// relay.
type Signer struct {
	apiKey string
	secret []byte
}

// NewSigner creates a token signer. apiKey becomes the issuer of every
// minted token.
func NewSigner(apiKey, apiSecret string) (*Signer, error) {
	if apiKey == "" || apiSecret == "" {
		return nil, fmt.Errorf("api key and secret are required")
	}
	return &Signer{apiKey: apiKey, secret: []byte(apiSecret)}, nil
}

// SessionToken generates a JWT for a gateway session
func (s *Signer) SessionToken(sessionID, role string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	claims := &SessionClaims{
		SessionID: sessionID,
		Role:      role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.apiKey,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// RoomToken generates a signed room-join token for the media relay
func (s *Signer) RoomToken(grant RoomGrant, ttl time.Duration) (string, error) {
	if grant.Room == "" || grant.Identity == "" {
		return "", fmt.Errorf("room and identity are required")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	claims := &RoomClaims{
		Grant: grant,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.apiKey,
			Subject:   grant.Identity,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// ValidateSessionToken validates a gateway token and returns its claims
func (s *Signer) ValidateSessionToken(tokenString string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, s.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(*SessionClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, jwt.ErrTokenInvalidClaims
}

// ValidateRoomToken validates a room join token and returns its claims
func (s *Signer) ValidateRoomToken(tokenString string) (*RoomClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &RoomClaims{}, s.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(*RoomClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, jwt.ErrTokenInvalidClaims
}

func (s *Signer) keyFunc(token *jwt.Token) (interface{}, error) {
	return s.secret, nil
}
