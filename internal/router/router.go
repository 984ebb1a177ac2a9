// Package router maps the HTTP surface of the notes application onto the service.
package router

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/4slk4/simple-note-taking/internal/auth"
	"github.com/4slk4/simple-note-taking/internal/flash"
	"github.com/4slk4/simple-note-taking/internal/gzippedhttp"
	"github.com/4slk4/simple-note-taking/internal/logger"
	"github.com/4slk4/simple-note-taking/internal/models"
	"github.com/4slk4/simple-note-taking/internal/render"
	"github.com/4slk4/simple-note-taking/internal/service"
	"github.com/4slk4/simple-note-taking/internal/user"
)

type notesService interface {
	Register(ctx context.Context, form models.RegisterForm) (*user.User, error)

	Authenticate(ctx context.Context, name, plaintext string) (*user.User, error)

	AddNote(ctx context.Context, userID string, form models.NoteForm) (user.Note, error)

	DeleteNote(ctx context.Context, userID, noteID string) error

	Ping(ctx context.Context) error

	GetInternalStats(ctx context.Context) (models.InternalStatsResponse, error)
}

type authenticator interface {
	AuthenticateUser(h http.Handler) http.Handler

	RequireUser(h http.Handler) http.Handler

	RequireAnonymous(h http.Handler) http.Handler

	SignIn(ctx context.Context, response http.ResponseWriter, userID string) error

	SignOut(ctx context.Context, response http.ResponseWriter, request *http.Request) error
}

type pageRenderer interface {
	Render(response http.ResponseWriter, status int, name string, data render.PageData) error
}

type subnetGuard interface {
	TrustedSubnetOnly(h http.Handler) http.Handler
}

const (
	msgInvalidCredentials  = "Invalid username or password"
	msgRegistrationSuccess = "Registration successful, please log in"
)

var registerMessages = map[error]string{
	service.ErrUsernameRequired: "Username is required",
	service.ErrWeakPassword:     "Your password is not strong enough",
	service.ErrPasswordMismatch: "Password does not match.",
	service.ErrUsernameTaken:    "Username is already taken",
}

type Router struct {
	svc      notesService
	auth     authenticator
	pages    pageRenderer
	validate *validator.Validate
}

func New(
	svc notesService,
	theAuth authenticator,
	pages pageRenderer,
	guard subnetGuard,
) *chi.Mux {
	myRouter := Router{
		svc:      svc,
		auth:     theAuth,
		pages:    pages,
		validate: validator.New(),
	}

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		logger.WithLoggingHTTPMiddleware,
		middleware.Recoverer,
		gzippedhttp.GzipResponse,
		MethodOverride,
	)

	router.Get(`/ping`, myRouter.GetPing)
	router.With(guard.TrustedSubnetOnly).Get(`/api/internal/stats`, myRouter.GetApiinternalstats)

	router.Group(func(r chi.Router) {
		r.Use(theAuth.AuthenticateUser, theAuth.RequireUser)
		r.Get(`/`, myRouter.GetIndex)
		r.Post(`/new-note`, myRouter.PostNewnote)
		r.Delete(`/delete-note/{noteID}`, myRouter.DeleteDeletenote)
		r.Delete(`/logout`, myRouter.DeleteLogout)
	})

	router.Group(func(r chi.Router) {
		r.Use(theAuth.AuthenticateUser, theAuth.RequireAnonymous)
		r.Get(`/login`, myRouter.GetLogin)
		r.Post(`/login`, myRouter.PostLogin)
		r.Get(`/register`, myRouter.GetRegister)
		r.Post(`/register`, myRouter.PostRegister)
	})

	return router
}

func (router *Router) render(response http.ResponseWriter, status int, name string, data render.PageData) {
	if err := router.pages.Render(response, status, name, data); err != nil {
		logger.Log.Errorw("Error calling the `router.pages.Render()`", "page", name, zap.Error(err))
		response.WriteHeader(http.StatusInternalServerError)
	}
}

func (router *Router) GetIndex(response http.ResponseWriter, request *http.Request) {
	usr, _ := auth.UserFromContext(request.Context())

	router.render(response, http.StatusOK, render.PageIndex, render.PageData{
		User:    usr,
		Message: flash.Pop(response, request),
	})
}

func (router *Router) PostNewnote(response http.ResponseWriter, request *http.Request) {
	usr, _ := auth.UserFromContext(request.Context())

	form := models.NoteForm{
		Title:   request.PostFormValue("title"),
		Content: request.PostFormValue("content"),
	}

	if _, err := router.svc.AddNote(request.Context(), usr.ID, form); err != nil {
		logger.Log.Errorw("Error calling the `router.svc.AddNote()`", zap.Error(err))
		response.WriteHeader(http.StatusInternalServerError)
		return
	}

	http.Redirect(response, request, "/", http.StatusFound)
}

func (router *Router) DeleteDeletenote(response http.ResponseWriter, request *http.Request) {
	usr, _ := auth.UserFromContext(request.Context())
	noteID := chi.URLParam(request, "noteID")

	if err := router.svc.DeleteNote(request.Context(), usr.ID, noteID); err != nil {
		logger.Log.Errorw("Error calling the `router.svc.DeleteNote()`", zap.Error(err))
		response.WriteHeader(http.StatusInternalServerError)
		return
	}

	http.Redirect(response, request, "/", http.StatusFound)
}

func (router *Router) GetLogin(response http.ResponseWriter, request *http.Request) {
	router.render(response, http.StatusOK, render.PageLogin, render.PageData{
		Message: flash.Pop(response, request),
	})
}

func (router *Router) PostLogin(response http.ResponseWriter, request *http.Request) {
	form := models.LoginForm{
		Username: request.PostFormValue("username"),
		Password: request.PostFormValue("password"),
	}
	if err := router.validate.Struct(form); err != nil {
		flash.Set(response, msgInvalidCredentials)
		http.Redirect(response, request, "/login", http.StatusFound)
		return
	}

	usr, err := router.svc.Authenticate(request.Context(), form.Username, form.Password)
	if errors.Is(err, service.ErrInvalidCredentials) {
		flash.Set(response, msgInvalidCredentials)
		http.Redirect(response, request, "/login", http.StatusFound)
		return
	}
	if err != nil {
		logger.Log.Errorw("Error calling the `router.svc.Authenticate()`", zap.Error(err))
		response.WriteHeader(http.StatusInternalServerError)
		return
	}

	if err := router.auth.SignIn(request.Context(), response, usr.ID); err != nil {
		logger.Log.Errorw("Error calling the `router.auth.SignIn()`", zap.Error(err))
		response.WriteHeader(http.StatusInternalServerError)
		return
	}

	http.Redirect(response, request, "/", http.StatusFound)
}

func (router *Router) GetRegister(response http.ResponseWriter, request *http.Request) {
	router.render(response, http.StatusOK, render.PageRegister, render.PageData{
		Message: flash.Pop(response, request),
	})
}

func (router *Router) PostRegister(response http.ResponseWriter, request *http.Request) {
	form := models.RegisterForm{
		Username:    request.PostFormValue("username"),
		NewPassword: request.PostFormValue("new_password"),
		Confirm:     request.PostFormValue("confirm"),
	}

	_, err := router.svc.Register(request.Context(), form)
	if err == nil {
		flash.Set(response, msgRegistrationSuccess)
		http.Redirect(response, request, "/login", http.StatusFound)
		return
	}

	for target, msg := range registerMessages {
		if errors.Is(err, target) {
			router.render(response, http.StatusOK, render.PageRegister, render.PageData{
				Message:  msg,
				Username: form.Username,
			})
			return
		}
	}

	if errors.Is(err, service.ErrHashingFailed) {
		logger.Log.Warnw("Password hashing failed during registration", zap.Error(err))
		http.Redirect(response, request, "/register", http.StatusFound)
		return
	}

	logger.Log.Errorw("Error calling the `router.svc.Register()`", zap.Error(err))
	response.WriteHeader(http.StatusInternalServerError)
}

func (router *Router) DeleteLogout(response http.ResponseWriter, request *http.Request) {
	if err := router.auth.SignOut(request.Context(), response, request); err != nil {
		logger.Log.Errorw("Error calling the `router.auth.SignOut()`", zap.Error(err))
		response.WriteHeader(http.StatusInternalServerError)
		return
	}

	http.Redirect(response, request, "/login", http.StatusFound)
}

func (router *Router) GetPing(response http.ResponseWriter, request *http.Request) {
	if err := router.svc.Ping(request.Context()); err != nil {
		logger.Log.Errorw("Error calling the `router.svc.Ping()`", zap.Error(err))
		response.WriteHeader(http.StatusInternalServerError)
		return
	}

	response.WriteHeader(http.StatusOK)
}

func (router *Router) GetApiinternalstats(response http.ResponseWriter, request *http.Request) {
	stats, err := router.svc.GetInternalStats(request.Context())
	if err != nil {
		logger.Log.Errorw("Error calling the `router.svc.GetInternalStats()`", zap.Error(err))
		response.WriteHeader(http.StatusInternalServerError)
		return
	}

	response.Header().Set("Content-Type", "application/json")
	response.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(response).Encode(stats); err != nil {
		logger.Log.Debugw("Error calling the `json.NewEncoder(response).Encode()`", zap.Error(err))
	}
}
