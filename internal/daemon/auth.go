package daemon

import (
	"net/http"
	"strings"
)

// authMiddleware validates bearer tokens against the current token. An empty
// token disables authentication. Rejected requests are answered by reject.
func authMiddleware(token func() string, reject http.HandlerFunc, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		want := token()
		if want == "" {
			next(w, r)
			return
		}
		auth := r.Header.Get("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") || strings.TrimPrefix(auth, "Bearer ") != want {
			reject(w, r)
			return
		}
		next(w, r)
	}
}
