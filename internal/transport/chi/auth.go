package chi

import (
	"crypto/sha256"
	"crypto/subtle"
	"net/http"
	"strings"
)

// APIKeyHeader is accepted in place of "Authorization: Bearer <key>".
const APIKeyHeader = "X-API-Key"

// publicPaths stay reachable without a key so probes and scrapers work.
var publicPaths = map[string]struct{}{
	"/":        {},
	"/health":  {},
	"/metrics": {},
}

// BearerAuthMiddleware rejects requests without one of apiKeys.
// Keys come from "Authorization: Bearer <key>" or the X-API-Key header.
// With no non-empty keys configured the middleware is a pass-through.
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
			if _, ok := publicPaths[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			key, msg := presentedKey(r)
			if msg == "" && !matchesAny(digests, key) {
				msg = "invalid api key"
			}
			if msg != "" {
				w.Header().Set("WWW-Authenticate", `Bearer realm="finrag"`)
				writeError(w, http.StatusUnauthorized, ErrorResponseCodeUnauthorized, msg)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// presentedKey extracts the client key; a non-empty msg explains why there is none.
func presentedKey(r *http.Request) (key, msg string) {
	if k := r.Header.Get(APIKeyHeader); k != "" {
		return k, ""
	}

	auth := r.Header.Get("Authorization")
	if auth == "" {
		return "", "missing authorization header"
	}
	scheme, token, ok := strings.Cut(auth, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", "authorization header must use Bearer scheme"
	}
	if token = strings.TrimSpace(token); token == "" {
		return "", "empty bearer token"
	}
	return token, ""
}

// matchesAny compares fixed-size digests in constant time, checking every key.
func matchesAny(digests [][sha256.Size]byte, key string) bool {
	sum := sha256.Sum256([]byte(key))
	found := 0
	for i := range digests {
		found |= subtle.ConstantTimeCompare(digests[i][:], sum[:])
	}
	return found == 1
}
