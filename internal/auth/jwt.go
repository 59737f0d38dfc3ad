package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenPair is what a sign-up or sign-in hands back: a short-lived access
// token and a longer-lived refresh token, both HS256.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	AccessExp    time.Time
	RefreshExp   time.Time
}

// Claims is the payload carried by classadmin tokens. Role is teacher or
// student and decides which route groups the bearer may enter.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Issue signs an access and refresh token pair for a user.
func Issue(uid, role, issuer, key string, accessTTL, refreshTTL time.Duration) (TokenPair, error) {
	now := time.Now()
	pair := TokenPair{
		AccessExp:  now.Add(accessTTL),
		RefreshExp: now.Add(refreshTTL),
	}

	var err error
	if pair.AccessToken, err = sign(uid, role, issuer, key, now, pair.AccessExp); err != nil {
		return TokenPair{}, err
	}
	if pair.RefreshToken, err = sign(uid, role, issuer, key, now, pair.RefreshExp); err != nil {
		return TokenPair{}, err
	}
	return pair, nil
}

func sign(uid, role, issuer, key string, issuedAt, expiry time.Time) (string, error) {
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    issuer,
			Subject:   uid,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiry),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
}

// Parse verifies a token's signature, expiry, and issuer and returns its
// claims. Tokens signed with any method other than HS256 are rejected, as
// are tokens whose role claim is neither teacher nor student.
func Parse(tokenStr, key, issuer string) (Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(key), nil
	})
	if err != nil {
		return Claims{}, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return Claims{}, errors.New("invalid token")
	}
	if issuer != "" && claims.Issuer != issuer {
		return Claims{}, errors.New("issuer mismatch")
	}
	if claims.Role != RoleTeacher && claims.Role != RoleStudent {
		return Claims{}, errors.New("unknown role claim")
	}
	return *claims, nil
}
