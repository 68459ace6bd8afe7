// Package auth provides bearer-token authentication for the management API.
// The scan endpoint stays public; only configuration writes pass through
// this middleware.
package auth

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	id "qrflow/pkg/domain"
	dErrors "qrflow/pkg/domain-errors"
	"qrflow/pkg/platform/httputil"
	"qrflow/pkg/requestcontext"
)

// Claims carries the subset of JWT claims this service consumes. Tier is
// issued by the account system; an absent claim means the free tier.
type Claims struct {
	AccountID string
	Tier      string
}

// TokenValidator validates a bearer token and returns its claims.
type TokenValidator interface {
	ValidateToken(tokenString string) (*Claims, error)
}

// HMACValidator validates HS256-signed tokens issued by the account system.
type HMACValidator struct {
	signingKey []byte
}

// NewHMACValidator constructs a validator for the shared signing key.
func NewHMACValidator(signingKey string) (*HMACValidator, error) {
	if signingKey == "" {
		return nil, fmt.Errorf("signing key is required")
	}
	return &HMACValidator{signingKey: []byte(signingKey)}, nil
}

// ValidateToken parses and verifies an HS256 token, extracting the account
// subject claim.
func (v *HMACValidator) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.signingKey, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "token missing subject")
	}
	tier, _ := claims["tier"].(string)
	return &Claims{AccountID: sub, Tier: tier}, nil
}

// RequireAccount returns middleware that rejects requests without a valid
// bearer token and injects the authenticated account ID into the context.
func RequireAccount(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing bearer token"))
				return
			}

			claims, err := validator.ValidateToken(strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				if logger != nil {
					logger.WarnContext(r.Context(), "token validation failed", "error", err)
				}
				httputil.WriteError(w, err)
				return
			}

			accountID, err := id.ParseAccountID(claims.AccountID)
			if err != nil {
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid account subject"))
				return
			}

			ctx := requestcontext.WithAccountID(r.Context(), accountID)
			ctx = requestcontext.WithTier(ctx, id.ParseSubscriptionTier(claims.Tier))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
