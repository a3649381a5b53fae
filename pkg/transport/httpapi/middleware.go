package httpapi

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	apphttp "github.com/chainsafe/remittance-ledger/pkg/app/http"
	"github.com/chainsafe/remittance-ledger/pkg/apperrors"
	"github.com/chainsafe/remittance-ledger/pkg/auth"
)

// PrincipalMiddleware resolves the calling data collector's principal
// from a bearer JWT before any handler runs: a bearer token whose "sub"
// claim is the principal. hmacKey, when non-empty, validates tokens with
// a shared HMAC secret (config.JWTConfig.UsesHMAC); otherwise validator's
// JWKS is used.
func PrincipalMiddleware(validator *auth.JWTValidator, hmacKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return apphttp.HandleError(func(w http.ResponseWriter, r *http.Request) error {
			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				return apperrors.AccessControl(apperrors.CodeNotAllowed, "missing bearer token", nil)
			}
			tokenString := strings.TrimPrefix(authHeader, "Bearer ")

			principal, err := resolvePrincipal(tokenString, validator, hmacKey)
			if err != nil {
				return apperrors.AccessControl(apperrors.CodeNotAllowed, "invalid bearer token", err)
			}

			ctx := auth.WithPrincipal(r.Context(), principal)
			next.ServeHTTP(w, r.WithContext(ctx))
			return nil
		})
	}
}

func resolvePrincipal(tokenString string, validator *auth.JWTValidator, hmacKey string) (string, error) {
	if hmacKey != "" {
		return resolvePrincipalHMAC(tokenString, hmacKey)
	}
	claims, err := validator.ValidateToken(tokenString)
	if err != nil {
		return "", err
	}
	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", apperrors.AccessControl(apperrors.CodeNotAllowed, "token missing sub claim", nil)
	}
	return sub, nil
}

func resolvePrincipalHMAC(tokenString, hmacKey string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, apperrors.AccessControl(apperrors.CodeNotAllowed, "unexpected signing method", nil)
		}
		return []byte(hmacKey), nil
	})
	if err != nil {
		return "", err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", apperrors.AccessControl(apperrors.CodeNotAllowed, "invalid token", nil)
	}
	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", apperrors.AccessControl(apperrors.CodeNotAllowed, "token missing sub claim", nil)
	}
	return sub, nil
}
