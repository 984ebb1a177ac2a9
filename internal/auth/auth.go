// Package auth bridges HTTP session state to an authenticated user.
// The session carries an identity claim (the user ID); every request resolves
// that claim against storage and attaches the user to the request context.
package auth

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/4slk4/simple-note-taking/internal/logger"
	"github.com/4slk4/simple-note-taking/internal/models"
	"github.com/4slk4/simple-note-taking/internal/user"
)

type userKeeper interface {
	GetUserByID(ctx context.Context, userID string) (*user.User, error)
}

// sessionStore gets, sets and clears the identity claim of a client.
// UserID returns an empty string when the request carries no valid claim.
type sessionStore interface {
	Save(ctx context.Context, response http.ResponseWriter, userID string) error
	UserID(ctx context.Context, request *http.Request) (string, error)
	Clear(ctx context.Context, response http.ResponseWriter, request *http.Request) error
}

// ContextKey is a custom type for storing values in context to avoid collisions.
type ContextKey string

// UserKey is the context key under which the authenticated *user.User is stored.
const UserKey ContextKey = "user"

const (
	loginPath = "/login"
	homePath  = "/"
)

// Auth resolves sessions to users and guards routes.
type Auth struct {
	db       userKeeper
	sessions sessionStore
}

func New(db userKeeper, sessions sessionStore) *Auth {
	return &Auth{
		db:       db,
		sessions: sessions,
	}
}

// UserFromContext returns the user attached by AuthenticateUser.
func UserFromContext(ctx context.Context) (*user.User, bool) {
	usr, ok := ctx.Value(UserKey).(*user.User)

	return usr, ok && usr != nil
}

// WithUser returns a copy of ctx carrying usr.
func WithUser(ctx context.Context, usr *user.User) context.Context {
	return context.WithValue(ctx, UserKey, usr)
}

// AuthenticateUser is an HTTP middleware that resolves the identity claim of
// the request. A missing, invalid or stale claim leaves the request anonymous.
func (a *Auth) AuthenticateUser(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		userID, err := a.sessions.UserID(request.Context(), request)
		if err != nil {
			logger.Log.Errorw("Error calling the `a.sessions.UserID()`", zap.Error(err))
			response.WriteHeader(http.StatusInternalServerError)
			return
		}
		if userID == "" {
			h.ServeHTTP(response, request)
			return
		}

		usr, err := a.db.GetUserByID(request.Context(), userID)
		if errors.Is(err, models.ErrUserNotFound) {
			h.ServeHTTP(response, request)
			return
		}
		if err != nil {
			logger.Log.Errorw("Error calling the `a.db.GetUserByID()`", zap.Error(err))
			response.WriteHeader(http.StatusInternalServerError)
			return
		}

		h.ServeHTTP(response, request.WithContext(WithUser(request.Context(), usr)))
	}

	return http.HandlerFunc(middleware)
}

// RequireUser redirects anonymous requests to the login page.
func (a *Auth) RequireUser(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		if _, ok := UserFromContext(request.Context()); !ok {
			http.Redirect(response, request, loginPath, http.StatusFound)
			return
		}
		h.ServeHTTP(response, request)
	}

	return http.HandlerFunc(middleware)
}

// RequireAnonymous redirects authenticated requests to the home page.
func (a *Auth) RequireAnonymous(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		if _, ok := UserFromContext(request.Context()); ok {
			http.Redirect(response, request, homePath, http.StatusFound)
			return
		}
		h.ServeHTTP(response, request)
	}

	return http.HandlerFunc(middleware)
}

// SignIn embeds userID in the client's session.
func (a *Auth) SignIn(ctx context.Context, response http.ResponseWriter, userID string) error {
	return a.sessions.Save(ctx, response, userID)
}

// SignOut clears the client's identity claim.
func (a *Auth) SignOut(ctx context.Context, response http.ResponseWriter, request *http.Request) error {
	return a.sessions.Clear(ctx, response, request)
}
