package httpx

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"log/slog"

	"github.com/gorilla/websocket"

	"github.com/devconnect/api/internal/domain"
	"github.com/devconnect/api/internal/repository"
	"github.com/devconnect/api/internal/service/auth"
	"github.com/devconnect/api/internal/service/post"
	"github.com/devconnect/api/internal/service/profile"
	"github.com/devconnect/api/internal/ws"
)

// Router wires HTTP endpoints to services.
type Router struct {
	mux      *http.ServeMux
	logger   *slog.Logger
	auth     auth.Service
	posts    post.Service
	profiles profile.Service
	feed     *ws.Hub
	upgrader websocket.Upgrader
	dbHealth func(context.Context) error
}

const healthCheckTimeout = 2 * time.Second

// NewRouter assembles routes with dependencies.
func NewRouter(logger *slog.Logger, authSvc auth.Service, postSvc post.Service, profileSvc profile.Service, feed *ws.Hub, dbHealth func(context.Context) error) *Router {
	r := &Router{
		mux:      http.NewServeMux(),
		logger:   logger,
		auth:     authSvc,
		posts:    postSvc,
		profiles: profileSvc,
		feed:     feed,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		dbHealth: dbHealth,
	}
	r.register()
	return r
}

// ServeHTTP delegates to underlying mux.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

func (r *Router) register() {
	r.mux.HandleFunc("/healthz", r.audit(r.handleHealthz))
	r.mux.HandleFunc("/api/users", r.audit(r.handleRegister))
	r.mux.HandleFunc("/api/auth", r.audit(r.handleAuth))
	r.mux.HandleFunc("/api/posts", r.audit(r.requireAuth(r.handlePosts)))
	r.mux.HandleFunc("/api/posts/", r.audit(r.requireAuth(r.handlePostSubroutes)))
	r.mux.HandleFunc("/api/profile", r.audit(r.handleProfile))
	r.mux.HandleFunc("/api/profile/", r.audit(r.handleProfileSubroutes))
	r.mux.HandleFunc("/ws/feed", r.audit(r.requireAuth(r.handleFeedWS)))
}

func (r *Router) handleRegister(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	var payload auth.RegisterInput
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	token, err := r.auth.Register(req.Context(), payload)
	if err != nil {
		r.writeServiceError(w, req, err, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// handleAuth serves the identity echo on GET and login on POST.
func (r *Router) handleAuth(w http.ResponseWriter, req *http.Request) {
	switch req.Method {
	case http.MethodGet:
		ctx, userID, ok := r.ensureAuth(w, req)
		if !ok {
			return
		}
		if setter, ok := w.(contextSetter); ok {
			setter.SetContext(ctx)
		}
		user, err := r.auth.CurrentUser(ctx, userID)
		if err != nil {
			r.writeServiceError(w, req, err, "User not found")
			return
		}
		writeJSON(w, http.StatusOK, user)
	case http.MethodPost:
		var payload struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
			writeMessage(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		token, err := r.auth.Login(req.Context(), payload.Username, payload.Password)
		if err != nil {
			r.writeServiceError(w, req, err, "User not found")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"token": token})
	default:
		r.methodNotAllowed(w)
	}
}

func (r *Router) handlePosts(w http.ResponseWriter, req *http.Request) {
	userID, ok := identityFromContext(req.Context())
	if !ok {
		r.missingIdentity(w, req)
		return
	}
	switch req.Method {
	case http.MethodGet:
		posts, err := r.posts.List(req.Context())
		if err != nil {
			r.writeServiceError(w, req, err, "Post not found")
			return
		}
		writeJSON(w, http.StatusOK, posts)
	case http.MethodPost:
		var payload struct {
			Text string `json:"text"`
		}
		if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
			writeMessage(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		created, err := r.posts.Create(req.Context(), userID, payload.Text)
		if err != nil {
			r.writeServiceError(w, req, err, "Post not found")
			return
		}
		writeJSON(w, http.StatusOK, created)
	default:
		r.methodNotAllowed(w)
	}
}

func (r *Router) handlePostSubroutes(w http.ResponseWriter, req *http.Request) {
	userID, ok := identityFromContext(req.Context())
	if !ok {
		r.missingIdentity(w, req)
		return
	}
	trimmed := strings.TrimPrefix(req.URL.Path, "/api/posts/")
	parts := strings.Split(trimmed, "/")
	switch {
	case len(parts) == 2 && parts[0] == "like":
		if req.Method != http.MethodPut {
			r.methodNotAllowed(w)
			return
		}
		likes, err := r.posts.Like(req.Context(), parts[1], userID)
		if err != nil {
			r.writeServiceError(w, req, err, "Post not found")
			return
		}
		writeJSON(w, http.StatusOK, likes)
	case len(parts) == 2 && parts[0] == "unlike":
		if req.Method != http.MethodPut {
			r.methodNotAllowed(w)
			return
		}
		likes, err := r.posts.Unlike(req.Context(), parts[1], userID)
		if err != nil {
			r.writeServiceError(w, req, err, "Post not found")
			return
		}
		writeJSON(w, http.StatusOK, likes)
	case len(parts) == 2 && parts[0] == "comment":
		if req.Method != http.MethodPost {
			r.methodNotAllowed(w)
			return
		}
		var payload struct {
			Comment string `json:"comment"`
		}
		if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
			writeMessage(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		comments, err := r.posts.AddComment(req.Context(), parts[1], userID, payload.Comment)
		if err != nil {
			r.writeServiceError(w, req, err, "Post not found")
			return
		}
		writeJSON(w, http.StatusOK, comments)
	case len(parts) == 3 && parts[0] == "comment":
		if req.Method != http.MethodDelete {
			r.methodNotAllowed(w)
			return
		}
		comments, err := r.posts.DeleteComment(req.Context(), parts[1], parts[2], userID)
		if err != nil {
			r.writeServiceError(w, req, err, "Comment does not exist")
			return
		}
		writeJSON(w, http.StatusOK, comments)
	case len(parts) == 1 && parts[0] != "":
		r.handlePostByID(w, req, parts[0], userID)
	default:
		r.notFound(w)
	}
}

func (r *Router) handlePostByID(w http.ResponseWriter, req *http.Request, postID, userID string) {
	switch req.Method {
	case http.MethodGet:
		found, err := r.posts.Get(req.Context(), postID)
		if err != nil {
			r.writeServiceError(w, req, err, "Post not found")
			return
		}
		writeJSON(w, http.StatusOK, found)
	case http.MethodDelete:
		if err := r.posts.Delete(req.Context(), postID, userID); err != nil {
			r.writeServiceError(w, req, err, "Post not found")
			return
		}
		writeMessage(w, http.StatusOK, "Post "+postID+" removed")
	default:
		r.methodNotAllowed(w)
	}
}

func (r *Router) handleProfile(w http.ResponseWriter, req *http.Request) {
	switch req.Method {
	case http.MethodGet:
		profiles, err := r.profiles.List(req.Context())
		if err != nil {
			r.writeServiceError(w, req, err, "Profile not found")
			return
		}
		writeJSON(w, http.StatusOK, profiles)
	case http.MethodPost:
		ctx, userID, ok := r.ensureAuth(w, req)
		if !ok {
			return
		}
		if setter, ok := w.(contextSetter); ok {
			setter.SetContext(ctx)
		}
		var payload profile.UpsertInput
		if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
			writeMessage(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		upserted, err := r.profiles.Upsert(ctx, userID, payload)
		if err != nil {
			r.writeServiceError(w, req, err, "Profile not found")
			return
		}
		writeJSON(w, http.StatusOK, upserted)
	case http.MethodDelete:
		ctx, userID, ok := r.ensureAuth(w, req)
		if !ok {
			return
		}
		if setter, ok := w.(contextSetter); ok {
			setter.SetContext(ctx)
		}
		if err := r.profiles.DeleteAccount(ctx, userID); err != nil {
			r.writeServiceError(w, req, err, "User not found")
			return
		}
		writeMessage(w, http.StatusOK, "User "+userID+" deleted")
	default:
		r.methodNotAllowed(w)
	}
}

func (r *Router) handleProfileSubroutes(w http.ResponseWriter, req *http.Request) {
	trimmed := strings.TrimPrefix(req.URL.Path, "/api/profile/")
	parts := strings.Split(trimmed, "/")
	switch {
	case len(parts) == 1 && parts[0] == "me":
		r.requireAuth(r.handleProfileMe)(w, req)
	case len(parts) == 2 && parts[0] == "user":
		r.handleProfileByUser(w, req, parts[1])
	case parts[0] == "experience":
		r.requireAuth(func(w http.ResponseWriter, req *http.Request) {
			r.handleExperience(w, req, parts[1:])
		})(w, req)
	case parts[0] == "education":
		r.requireAuth(func(w http.ResponseWriter, req *http.Request) {
			r.handleEducation(w, req, parts[1:])
		})(w, req)
	default:
		r.notFound(w)
	}
}

func (r *Router) handleProfileMe(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	userID, ok := identityFromContext(req.Context())
	if !ok {
		r.missingIdentity(w, req)
		return
	}
	me, err := r.profiles.Me(req.Context(), userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeMessage(w, http.StatusBadRequest, "This user has no profile")
			return
		}
		r.writeServiceError(w, req, err, "Profile not found")
		return
	}
	writeJSON(w, http.StatusOK, me)
}

func (r *Router) handleProfileByUser(w http.ResponseWriter, req *http.Request, targetUserID string) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	found, err := r.profiles.ByUser(req.Context(), targetUserID)
	if err != nil {
		r.writeServiceError(w, req, err, "Profile not found")
		return
	}
	writeJSON(w, http.StatusOK, found)
}

func (r *Router) handleExperience(w http.ResponseWriter, req *http.Request, rest []string) {
	userID, ok := identityFromContext(req.Context())
	if !ok {
		r.missingIdentity(w, req)
		return
	}
	switch {
	case len(rest) == 0:
		if req.Method != http.MethodPut {
			r.methodNotAllowed(w)
			return
		}
		var payload profile.ExperienceInput
		if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
			writeMessage(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		updated, err := r.profiles.AddExperience(req.Context(), userID, payload)
		if err != nil {
			r.writeServiceError(w, req, err, "This user has no profile")
			return
		}
		writeJSON(w, http.StatusOK, updated)
	case len(rest) == 1 && rest[0] != "":
		if req.Method != http.MethodDelete {
			r.methodNotAllowed(w)
			return
		}
		updated, err := r.profiles.DeleteExperience(req.Context(), userID, rest[0])
		if err != nil {
			r.writeServiceError(w, req, err, "Experience entry not found")
			return
		}
		writeJSON(w, http.StatusOK, updated)
	default:
		r.notFound(w)
	}
}

func (r *Router) handleEducation(w http.ResponseWriter, req *http.Request, rest []string) {
	userID, ok := identityFromContext(req.Context())
	if !ok {
		r.missingIdentity(w, req)
		return
	}
	switch {
	case len(rest) == 0:
		if req.Method != http.MethodPut {
			r.methodNotAllowed(w)
			return
		}
		var payload profile.EducationInput
		if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
			writeMessage(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		updated, err := r.profiles.AddEducation(req.Context(), userID, payload)
		if err != nil {
			r.writeServiceError(w, req, err, "This user has no profile")
			return
		}
		writeJSON(w, http.StatusOK, updated)
	case len(rest) == 1 && rest[0] != "":
		if req.Method != http.MethodDelete {
			r.methodNotAllowed(w)
			return
		}
		updated, err := r.profiles.DeleteEducation(req.Context(), userID, rest[0])
		if err != nil {
			r.writeServiceError(w, req, err, "Education entry not found")
			return
		}
		writeJSON(w, http.StatusOK, updated)
	default:
		r.notFound(w)
	}
}

func (r *Router) handleFeedWS(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	if r.feed == nil {
		writeMessage(w, http.StatusServiceUnavailable, "feed unavailable")
		return
	}
	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	client := ws.NewClient(conn, r.logger)
	r.feed.Register(client)
	go func() {
		defer func() {
			r.feed.Unregister(client)
			client.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()
}

func (r *Router) handleHealthz(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	components := make(map[string]any)
	status := "ok"
	if r.dbHealth != nil {
		ctx, cancel := context.WithTimeout(req.Context(), healthCheckTimeout)
		defer cancel()
		if err := r.dbHealth(ctx); err != nil {
			status = "degraded"
			components["database"] = map[string]any{"status": "down", "error": err.Error()}
		} else {
			components["database"] = map[string]any{"status": "up"}
		}
	}
	payload := map[string]any{
		"status":     status,
		"components": components,
		"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
	}
	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, payload)
}

// writeServiceError maps service and repository failures onto the response
// taxonomy. Anything unrecognized is reported as a generic server error with
// the detail kept in the log.
func (r *Router) writeServiceError(w http.ResponseWriter, req *http.Request, err error, notFoundMsg string) {
	var validation *domain.ValidationError
	switch {
	case errors.As(err, &validation):
		writeFieldErrors(w, http.StatusBadRequest, validation.Messages)
	case errors.Is(err, auth.ErrEmailTaken):
		writeFieldErrors(w, http.StatusBadRequest, []string{"Email already exists"})
	case errors.Is(err, auth.ErrUsernameTaken):
		writeFieldErrors(w, http.StatusBadRequest, []string{"Username already exists"})
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeFieldErrors(w, http.StatusBadRequest, []string{"Invalid username or password"})
	case errors.Is(err, domain.ErrNotOwner):
		writeMessage(w, http.StatusForbidden, "User not authorized")
	case errors.Is(err, repository.ErrAlreadyLiked):
		writeMessage(w, http.StatusBadRequest, "Post already liked")
	case errors.Is(err, repository.ErrNotLiked):
		writeMessage(w, http.StatusBadRequest, "Post has not yet been liked")
	case errors.Is(err, repository.ErrNotFound):
		writeMessage(w, http.StatusNotFound, notFoundMsg)
	default:
		r.logger.Error("request failed", "error", err, "method", req.Method, "path", req.URL.Path)
		writeMessage(w, http.StatusInternalServerError, "Server error")
	}
}

// missingIdentity reports a request that passed the auth gate without an
// identity in context. It indicates a wiring bug, not a client fault.
func (r *Router) missingIdentity(w http.ResponseWriter, req *http.Request) {
	r.logger.Error("identity missing from context", "path", req.URL.Path)
	writeMessage(w, http.StatusInternalServerError, "Server error")
}

func (r *Router) methodNotAllowed(w http.ResponseWriter) {
	writeMessage(w, http.StatusMethodNotAllowed, "method not allowed")
}

func (r *Router) notFound(w http.ResponseWriter) {
	writeMessage(w, http.StatusNotFound, "not found")
}

func (r *Router) audit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w}
		start := time.Now()
		next(recorder, req)

		status := recorder.status
		if status == 0 {
			status = http.StatusOK
		}
		ctx := recorder.ctx
		if ctx == nil {
			ctx = req.Context()
		}
		duration := time.Since(start)
		fields := []any{
			"method", req.Method,
			"path", req.URL.Path,
			"status", status,
			"bytes", recorder.bytes,
			"duration_ms", duration.Milliseconds(),
		}
		if ip := clientIP(req); ip != "" {
			fields = append(fields, "ip", ip)
		}
		if reqID := strings.TrimSpace(req.Header.Get("X-Request-ID")); reqID != "" {
			fields = append(fields, "request_id", reqID)
		}
		actor := "anonymous"
		if userID, ok := identityFromContext(ctx); ok {
			actor = "user"
			fields = append(fields, "user_id", userID)
		}
		fields = append(fields, "actor", actor)

		switch {
		case status >= http.StatusInternalServerError:
			r.logger.Error("http_request", fields...)
		case status >= http.StatusBadRequest:
			r.logger.Warn("http_request", fields...)
		default:
			r.logger.Info("http_request", fields...)
		}
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
	ctx    context.Context
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if sr.status == 0 {
		sr.status = http.StatusOK
	}
	n, err := sr.ResponseWriter.Write(b)
	sr.bytes += n
	return n, err
}

func (sr *statusRecorder) SetContext(ctx context.Context) {
	sr.ctx = ctx
}

func (sr *statusRecorder) Flush() {
	if f, ok := sr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (sr *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := sr.ResponseWriter.(http.Hijacker); ok {
		return h.Hijack()
	}
	return nil, nil, errors.New("hijacker not supported")
}

func clientIP(req *http.Request) string {
	if forwarded := strings.TrimSpace(req.Header.Get("X-Forwarded-For")); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		if len(parts) > 0 {
			if ip := strings.TrimSpace(parts[0]); ip != "" {
				return ip
			}
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(req.RemoteAddr))
	if err != nil {
		return strings.TrimSpace(req.RemoteAddr)
	}
	return host
}
