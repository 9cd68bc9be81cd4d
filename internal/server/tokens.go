package server

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hg192/tankGPT/internal/game"
)

// ErrInvalidToken is returned for rejoin tokens that fail verification.
var ErrInvalidToken = errors.New("server: invalid rejoin token")

const DefaultTokenTTL = 30 * time.Minute

type rejoinClaims struct {
	Team string `json:"team"`
	jwt.RegisteredClaims
}

// TokenIssuer signs rejoin tokens so a reconnecting browser keeps its player
// id and team.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer returns an HS256 issuer. An empty secret is replaced by a
// random one, which invalidates tokens across restarts.
func NewTokenIssuer(secret string, ttl time.Duration) (*TokenIssuer, error) {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generate token secret: %w", err)
		}
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenIssuer{secret: key, ttl: ttl, now: time.Now}, nil
}

// Issue signs a token for playerID on team.
func (ti *TokenIssuer) Issue(playerID string, team game.Team) (string, error) {
	now := ti.now()
	claims := rejoinClaims{
		Team: string(team),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   playerID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ti.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(ti.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies token and returns the player id and team it was issued for.
func (ti *TokenIssuer) Parse(token string) (string, game.Team, error) {
	if token == "" {
		return "", game.TeamNone, ErrInvalidToken
	}
	var claims rejoinClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return ti.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(ti.now),
	)
	if err != nil || !parsed.Valid {
		return "", game.TeamNone, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return "", game.TeamNone, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return claims.Subject, game.Team(claims.Team), nil
}
