package session

import (
	"errors"
	"net/http"
	"strings"

	"batch_payout/internal/app/port"
)

// DefaultHeader carries the identity set by the upstream authenticating proxy.
const DefaultHeader = "X-User-Id"

// ErrUnauthenticated is returned when a request carries no identity.
var ErrUnauthenticated = errors.New("unauthenticated request")

// HeaderProvider reads the authenticated identity from a trusted request header.
type HeaderProvider struct {
	header string
}

// NewHeaderProvider creates a HeaderProvider for header, falling back to DefaultHeader.
func NewHeaderProvider(header string) *HeaderProvider {
	if strings.TrimSpace(header) == "" {
		header = DefaultHeader
	}
	return &HeaderProvider{header: header}
}

// Identity implements port.SessionProvider.
func (p *HeaderProvider) Identity(r *http.Request) (string, error) {
	identity := strings.TrimSpace(r.Header.Get(p.header))
	if identity == "" {
		return "", ErrUnauthenticated
	}
	return identity, nil
}

var _ port.SessionProvider = (*HeaderProvider)(nil)
