package httphandler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// errUnauthenticated covers missing, malformed, expired and badly signed tokens.
	errUnauthenticated = errors.New("unauthenticated")
	// errForbidden means the token is valid but carries no verified email.
	errForbidden = errors.New("token has no verified email")
)

// identityClaims are the claims read from identity provider tokens.
type identityClaims struct {
	Email         string `json:"email"`
	EmailVerified *bool  `json:"email_verified,omitempty"`
	jwt.RegisteredClaims
}

// IdentityVerifier validates HS256 bearer tokens issued by the identity
// provider and extracts the submitter's email.
type IdentityVerifier struct {
	secret   []byte
	issuer   string
	audience string
}

// NewIdentityVerifier creates a verifier. Empty issuer or audience disables
// that check.
func NewIdentityVerifier(secret, issuer, audience string) *IdentityVerifier {
	return &IdentityVerifier{
		secret:   []byte(secret),
		issuer:   issuer,
		audience: audience,
	}
}

// Verify parses tokenString and returns the verified email claim. Errors wrap
// errUnauthenticated or errForbidden.
func (v *IdentityVerifier) Verify(tokenString string) (string, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	claims := &identityClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return "", fmt.Errorf("%w: %w", errUnauthenticated, err)
	}

	email := strings.TrimSpace(claims.Email)
	if email == "" {
		return "", fmt.Errorf("%w: missing email claim", errForbidden)
	}
	if claims.EmailVerified != nil && !*claims.EmailVerified {
		return "", fmt.Errorf("%w: email not verified", errForbidden)
	}

	return email, nil
}

// IdentityFromContext returns the verified email set by requireIdentity.
func IdentityFromContext(ctx context.Context) (string, bool) {
	email, ok := ctx.Value(identityKey).(string)
	return email, ok && email != ""
}

// requireIdentity rejects requests without a valid bearer token and stores the
// verified email in the request context.
func (h *Handler) requireIdentity(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, categoryUnauthorized, "Missing bearer token")
			return
		}

		email, err := h.verifier.Verify(token)
		if err != nil {
			h.logger.Info("identity rejected",
				"error", err,
				"request_id", RequestIDFromContext(r.Context()),
			)
			if errors.Is(err, errForbidden) {
				writeError(w, http.StatusForbidden, categoryForbidden, "A verified email is required to add movies")
				return
			}
			writeError(w, http.StatusUnauthorized, categoryUnauthorized, "Invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), identityKey, email)
		next(w, r.WithContext(ctx))
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
