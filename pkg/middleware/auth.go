package middleware

import (
	"context"
	"net/http"
	"strings"

	"loyly/pkg/logger"

	"github.com/golang-jwt/jwt/v5"
)

const IdentityKey contextKey = "identity"

// Identity is what the external identity provider vouches for. The core
// trusts these claims without further checks.
type Identity struct {
	UserID string
	Email  string
	Name   string
}

// Claims is the expected shape of the bearer token issued by the identity
// provider.
type Claims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	jwt.RegisteredClaims
}

// IdentityProvisioner lets the auth layer materialize an account for a
// subject the first time it shows up with a valid token.
type IdentityProvisioner interface {
	EnsureUser(ctx context.Context, id, email, name string) error
}

// Authenticate verifies the bearer token, provisions the account, and stores
// the identity in the request context. Paths under skipPrefixes (webhook
// callbacks carry their own HMAC signature) bypass token verification.
func Authenticate(secret []byte, provisioner IdentityProvisioner, log *logger.Logger, skipPrefixes ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, prefix := range skipPrefixes {
				if strings.HasPrefix(r.URL.Path, prefix) {
					next.ServeHTTP(w, r)
					return
				}
			}

			header := r.Header.Get("Authorization")
			tokenString, found := strings.CutPrefix(header, "Bearer ")
			if !found || tokenString == "" {
				rejectUnauthorized(w, log, r, "Missing or malformed Authorization header")
				return
			}

			claims := &Claims{}
			token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
				return secret, nil
			})
			if err != nil || !token.Valid {
				rejectUnauthorized(w, log, r, "Invalid token")
				return
			}

			subject, err := claims.GetSubject()
			if err != nil || subject == "" {
				rejectUnauthorized(w, log, r, "Token missing subject")
				return
			}

			if err := provisioner.EnsureUser(r.Context(), subject, claims.Email, claims.Name); err != nil {
				log.Error("Failed to provision user from token claims",
					"request_id", requestIDFrom(r.Context()),
					"user_id", subject,
					"error", err,
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(`{"error":"Internal server error"}`))
				return
			}

			ctx := context.WithValue(r.Context(), IdentityKey, Identity{
				UserID: subject,
				Email:  claims.Email,
				Name:   claims.Name,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func IdentityFrom(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(IdentityKey).(Identity)
	return identity, ok
}

func rejectUnauthorized(w http.ResponseWriter, log *logger.Logger, r *http.Request, reason string) {
	log.Warn("Unauthorized request",
		"request_id", requestIDFrom(r.Context()),
		"path", r.URL.Path,
		"reason", reason,
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"Unauthorized"}`))
}
