package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/pubtrivia/tally/internal/adapters/auth"
)

// identityReader resolves the caller identity from the Authorization header.
// A request without a token yields the anonymous identity; a request with a
// bad token is an error the handler turns into 401.
type identityReader struct {
	verifier *auth.Verifier
}

func newIdentityReader(verifier *auth.Verifier) *identityReader {
	return &identityReader{verifier: verifier}
}

func (ir *identityReader) identify(r *http.Request) (auth.Identity, error) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return auth.Identity{}, nil
	}
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found {
		return auth.Identity{}, auth.ErrInvalidToken
	}
	id, err := ir.verifier.Verify(r.Context(), token)
	if err != nil && errors.Is(err, auth.ErrNoToken) {
		return auth.Identity{}, nil
	}
	return id, err
}
