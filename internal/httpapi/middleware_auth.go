package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"journalgate/internal/keys"
	"journalgate/internal/store"
)

// authMiddleware resolves the bearer credential to an identity and scope
// set. Structural failures are rejected before the key store is consulted;
// resolved keys are then checked for revocation and expiry, in that order,
// and possession is proven by a constant-time hash comparison.
func (s server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		credential := bearerToken(r)
		if credential == "" {
			writeUnauthorized(w, r, "missing bearer credential")
			return
		}

		keyID, secret, err := keys.ParseCredential(credential)
		if err != nil {
			writeUnauthorized(w, r, "malformed credential")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		key, err := s.keys.Lookup(ctx, keyID)
		cancel()
		if errors.Is(err, store.ErrKeyNotFound) {
			writeUnauthorized(w, r, "unknown credential")
			return
		}
		if err != nil {
			writeInternal(w, r, "key lookup failed", err)
			return
		}

		// A revocation timestamp invalidates the key by its presence.
		if key.RevokedAt != nil {
			writeUnauthorized(w, r, "credential revoked")
			return
		}
		now := time.Now().UTC()
		if key.ExpiresAt != nil && key.ExpiresAt.Before(now) {
			writeUnauthorized(w, r, "credential expired")
			return
		}
		if !keys.VerifySecret(secret, key.KeyHash) {
			writeUnauthorized(w, r, "invalid credential")
			return
		}

		ident := &identity{
			UserID: key.UserID,
			KeyID:  key.KeyID,
			Scopes: append([]string(nil), key.Scopes...),
		}
		if ref, ok := r.Context().Value(ctxIdentityRef).(*identityRef); ok {
			ref.id = ident
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxIdentity, ident)))
	})
}

// requireScope gates an operation on the resolved scope set. A valid
// credential without the scope is Forbidden, distinct from the
// Unauthorized failures of identity resolution.
func (s server) requireScope(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ident, ok := identityFromCtx(r.Context())
			if !ok {
				writeUnauthorized(w, r, "missing bearer credential")
				return
			}
			if !ident.hasScope(scope) {
				writeForbidden(w, r, "operation requires scope "+scope)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
