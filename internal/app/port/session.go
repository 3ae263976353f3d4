package port

import "net/http"

// SessionProvider extracts the authenticated user identity from a request.
type SessionProvider interface {
	Identity(r *http.Request) (string, error)
}
