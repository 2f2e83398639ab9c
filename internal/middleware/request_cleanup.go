package middleware

import (
	"io"
	"net/http"
)

// DefaultMaxBodyBytes fits any pushups or profile payload with room to spare.
const DefaultMaxBodyBytes int64 = 64 << 10

// DrainAndCloseRequest caps the request body at maxBodyBytes and drains
// whatever the handler left unread, so the connection can be reused.
func DrainAndCloseRequest(maxBodyBytes int64) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body == nil {
				next.ServeHTTP(w, r)
				return
			}

			if maxBodyBytes > 0 {
				r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
			}
			next.ServeHTTP(w, r)

			_, _ = io.Copy(io.Discard, r.Body)
			_ = r.Body.Close()
		})
	}
}
