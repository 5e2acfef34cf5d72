package chi

import (
	"crypto/sha256"
	"crypto/subtle"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/aptsearch/internal/logger"
)

// exemptPaths are routes that bypass authentication (health, metrics).
var exemptPaths = map[string]struct{}{
	"/health":  {},
	"/metrics": {},
}

const bearerPrefix = "Bearer "

// BearerAuthMiddleware returns a middleware that validates Bearer tokens.
// If apiKeys is empty, authentication is disabled (pass-through).
func BearerAuthMiddleware(apiKeys []string) func(http.Handler) http.Handler {
	var digests [][sha256.Size]byte
	for _, k := range apiKeys {
		if k != "" {
			digests = append(digests, sha256.Sum256([]byte(k)))
		}
	}

	return func(next http.Handler) http.Handler {
		if len(digests) == 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := exemptPaths[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			reject := func(reason string) {
				logger.FromContext(r.Context()).Info("request rejected",
					zap.String("path", r.URL.Path), zap.String("reason", reason))
				w.Header().Set("WWW-Authenticate", `Bearer realm="aptsearch"`)
				writeError(w, http.StatusUnauthorized, ErrorCodeUnauthorized, reason)
			}

			auth := r.Header.Get("Authorization")
			switch {
			case auth == "":
				reject("missing authorization header")
			case !strings.HasPrefix(auth, bearerPrefix):
				reject("authorization header must use Bearer scheme")
			case !knownKey(digests, auth[len(bearerPrefix):]):
				reject("invalid api key")
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

// knownKey compares digests in constant time so the key length does not leak.
func knownKey(digests [][sha256.Size]byte, token string) bool {
	got := sha256.Sum256([]byte(token))
	found := 0
	for i := range digests {
		found |= subtle.ConstantTimeCompare(got[:], digests[i][:])
	}
	return found == 1
}
