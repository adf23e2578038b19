package httpx

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

type authContextKey string

const contextKeyIdentity authContextKey = "devconnect-identity"

type contextSetter interface {
	SetContext(context.Context)
}

// requireAuth ensures the request carries a valid bearer token before invoking
// the handler. It is a pure gatekeeper: a rejected token is reported once and
// never retried within the request.
func (r *Router) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		ctx, _, ok := r.ensureAuth(w, req)
		if !ok {
			return
		}
		if setter, ok := w.(contextSetter); ok {
			setter.SetContext(ctx)
		}
		next(w, req.WithContext(ctx))
	}
}

// ensureAuth validates the Authorization header and attaches the verified
// user id to the context.
func (r *Router) ensureAuth(w http.ResponseWriter, req *http.Request) (context.Context, string, bool) {
	token, err := bearerToken(req.Header.Get("Authorization"))
	if err != nil {
		r.logger.Warn("authorization header missing", "error", err, "path", req.URL.Path)
		writeMessage(w, http.StatusUnauthorized, "No token, authorization denied")
		return req.Context(), "", false
	}
	userID, err := r.auth.VerifyToken(token)
	if err != nil {
		r.logger.Warn("token verification failed", "error", err, "path", req.URL.Path)
		writeMessage(w, http.StatusUnauthorized, "Invalid token")
		return req.Context(), "", false
	}
	ctx := context.WithValue(req.Context(), contextKeyIdentity, userID)
	return ctx, userID, true
}

// identityFromContext extracts the verified user id from context.
func identityFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(contextKeyIdentity).(string)
	return userID, ok && userID != ""
}

func bearerToken(header string) (string, error) {
	if strings.TrimSpace(header) == "" {
		return "", errors.New("missing authorization header")
	}
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization header format")
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.New("empty bearer token")
	}
	return token, nil
}
