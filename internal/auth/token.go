// Package auth signs the console_client cookie that identifies a browser to
// the console. It carries no backend credentials; those stay in the session.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

type ClientClaims struct {
	ClientID string `json:"cid"`
	IssuedAt int64  `json:"iat"`
	Exp      int64  `json:"exp"`
}

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("expired token")
)

func IssueClientToken(secret []byte, claims ClientClaims) (string, error) {
	payloadBytes, err := json.Marshal(claims)
	if err != nil {
		return "", fmt.Errorf("marshal claims: %w", err)
	}
	payload := base64.RawURLEncoding.EncodeToString(payloadBytes)
	return payload + "." + sign(secret, payload), nil
}

// NewClientToken mints claims for clientID valid for ttl from now.
func NewClientToken(secret []byte, clientID string, now time.Time, ttl time.Duration) (string, error) {
	return IssueClientToken(secret, ClientClaims{
		ClientID: clientID,
		IssuedAt: now.Unix(),
		Exp:      now.Add(ttl).Unix(),
	})
}

func ParseClientToken(secret []byte, token string, now time.Time) (ClientClaims, error) {
	payload, signature, ok := strings.Cut(token, ".")
	if !ok || strings.Contains(signature, ".") {
		return ClientClaims{}, ErrInvalidToken
	}
	if !hmac.Equal([]byte(signature), []byte(sign(secret, payload))) {
		return ClientClaims{}, ErrInvalidToken
	}

	decoded, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return ClientClaims{}, ErrInvalidToken
	}
	var claims ClientClaims
	if err := json.Unmarshal(decoded, &claims); err != nil {
		return ClientClaims{}, ErrInvalidToken
	}
	if claims.ClientID == "" || claims.Exp == 0 {
		return ClientClaims{}, ErrInvalidToken
	}
	if now.Unix() >= claims.Exp {
		return ClientClaims{}, ErrExpiredToken
	}
	return claims, nil
}

func sign(secret []byte, payload string) string {
	sum := hmac.New(sha256.New, secret)
	_, _ = sum.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(sum.Sum(nil))
}
