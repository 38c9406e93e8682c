package http

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strings"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
)

// SignatureHeader carries the HMAC-SHA256 of an activity request body
const SignatureHeader = "X-Relnotify-Signature-256"

// Authenticator verifies activity API requests. A request passes when any
// configured method accepts it; with nothing configured every request passes.
type Authenticator struct {
	secret string
	jwtKey []byte
}

// NewAuthenticator creates an Authenticator. Empty secret or key disables the
// corresponding method.
func NewAuthenticator(secret string, jwtKey []byte) *Authenticator {
	return &Authenticator{
		secret: secret,
		jwtKey: jwtKey,
	}
}

func (a *Authenticator) enabled() bool {
	return a.secret != "" || len(a.jwtKey) > 0
}

// Middleware rejects requests that fail authentication with 401
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.enabled() {
			next.ServeHTTP(w, r)
			return
		}

		logger := ctxlog.From(r.Context())

		if len(a.jwtKey) > 0 {
			if raw, ok := bearerToken(r); ok {
				token, err := jwt.Parse([]byte(raw),
					jwt.WithKey(jwa.HS256, a.jwtKey),
					jwt.WithValidate(true),
				)
				if err == nil {
					logger.Debug("Authenticated by JWT", "subject", token.Subject())
					next.ServeHTTP(w, r)
					return
				}
				logger.Warn("Invalid JWT", "error", err)
			}
		}

		if a.secret != "" {
			if signature := r.Header.Get(SignatureHeader); signature != "" {
				body, err := io.ReadAll(r.Body)
				if err != nil {
					writeError(w, goerr.Wrap(err, "failed to read request body"), http.StatusBadRequest)
					return
				}
				_ = r.Body.Close()
				r.Body = io.NopCloser(bytes.NewReader(body))

				if verifySignature(a.secret, body, signature) {
					next.ServeHTTP(w, r)
					return
				}
				logger.Warn("Invalid activity signature")
			}
		}

		writeError(w, goerr.New("unauthorized"), http.StatusUnauthorized)
	})
}

func bearerToken(r *http.Request) (string, bool) {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(auth) <= len(prefix) || !strings.EqualFold(auth[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(auth[len(prefix):]), true
}

// verifySignature checks a "sha256=<hex>" HMAC of payload
func verifySignature(secret string, payload []byte, signature string) bool {
	if signature == "" {
		return false
	}

	// Remove "sha256=" prefix if present
	signature = strings.TrimPrefix(signature, "sha256=")

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expectedMAC := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(signature), []byte(expectedMAC))
}
