package rest

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/a3888968/wiseguide-backend/internal/domain"
)

type contextKey string

const claimsKey contextKey = "authClaims"

const tokenLifetime = 24 * time.Hour

// AuthClaims identifies the caller on authenticated routes.
type AuthClaims struct {
	Username string `json:"username"`
	SystemID string `json:"systemId"`
	IsAdmin  bool   `json:"isAdmin"`
	jwt.RegisteredClaims
}

// Authenticator issues and verifies the API's bearer tokens.
type Authenticator struct {
	secret []byte
	issuer string
}

// NewAuthenticator creates an Authenticator.
func NewAuthenticator(secret, issuer string) *Authenticator {
	return &Authenticator{secret: []byte(secret), issuer: issuer}
}

// IssueToken signs a token for a user.
func (a *Authenticator) IssueToken(user domain.User) (string, error) {
	now := time.Now()
	claims := AuthClaims{
		Username: user.Username,
		SystemID: user.System.SystemID,
		IsAdmin:  user.IsAdmin(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    a.issuer,
			Subject:   user.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenLifetime)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// ParseToken verifies a token and returns its claims.
func (a *Authenticator) ParseToken(token string) (*AuthClaims, error) {
	claims := &AuthClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(a.issuer))
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// Middleware rejects requests without a valid bearer token and stashes the
// claims on the request context.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Reason: "unauthorized"})
			return
		}
		claims, err := a.ParseToken(token)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Reason: "unauthorized"})
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey, claims)))
	})
}

// ClaimsFrom extracts the caller's claims from a request context.
func ClaimsFrom(ctx context.Context) *AuthClaims {
	claims, _ := ctx.Value(claimsKey).(*AuthClaims)
	return claims
}

// HashPassword hashes a plaintext password for storage.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword compares a plaintext password against a stored hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
