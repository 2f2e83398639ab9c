package users

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/2beens/pushups/internal/auth"
	"github.com/2beens/pushups/internal/middleware"
	"github.com/2beens/pushups/internal/telemetry/metrics"
	"github.com/2beens/pushups/internal/telemetry/tracing"
	"github.com/2beens/pushups/pkg"
)

//go:generate mockgen -source=$GOFILE -destination=handler_mocks_test.go -package=users_test

type usersService interface {
	Register(ctx context.Context, reg Registration) (*AuthResponse, error)
	Login(ctx context.Context, creds Credentials) (*AuthResponse, error)
	Logout(ctx context.Context, token string) error
	Profile(ctx context.Context, userID int) (*User, error)
	UpdateProfile(ctx context.Context, userID int, update ProfileUpdate) (*User, error)
}

type Handler struct {
	service usersService
}

func NewHandler(service usersService) *Handler {
	return &Handler{
		service: service,
	}
}

func (handler *Handler) SetupRoutes(
	mainRouter *mux.Router,
	rateLimiter middleware.RequestRateLimiter,
	metricsManager *metrics.Manager,
	loginAllowedPerMin int,
) {
	usersRouter := mainRouter.PathPrefix("/users").Subrouter()
	usersRouter.HandleFunc("/register", handler.HandleRegister).Methods("POST", "OPTIONS").Name("register")
	usersRouter.HandleFunc("/logout", handler.HandleLogout).Methods("POST", "OPTIONS").Name("logout")
	usersRouter.HandleFunc("/profile", handler.HandleGetProfile).Methods("GET", "OPTIONS").Name("get-profile")
	usersRouter.HandleFunc("/profile", handler.HandleUpdateProfile).Methods("PUT", "OPTIONS").Name("update-profile")

	// rate limit login attempts per client to slow down password guessing
	loginRateLimit := middleware.RateLimit(rateLimiter, "login", loginAllowedPerMin, metricsManager)
	usersRouter.Handle("/login", loginRateLimit(http.HandlerFunc(handler.HandleLogin))).Methods("POST", "OPTIONS").Name("login")
}

func (handler *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.users.register")
	defer span.End()

	if !pkg.IsJSONRequest(r) {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	var reg Registration
	if err := json.NewDecoder(r.Body).Decode(&reg); err != nil {
		log.Tracef("register, unmarshal json params: %s", err)
		http.Error(w, "register failed", http.StatusBadRequest)
		return
	}

	resp, err := handler.service.Register(ctx, reg)
	if err != nil {
		writeError(w, "register", err)
		return
	}

	writeJSON(w, resp, http.StatusCreated)
}

func (handler *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.users.login")
	defer span.End()

	if !pkg.IsJSONRequest(r) {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	var creds Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		log.Tracef("login, unmarshal json params: %s", err)
		http.Error(w, "login failed", http.StatusBadRequest)
		return
	}

	resp, err := handler.service.Login(ctx, creds)
	if err != nil {
		writeError(w, "login", err)
		return
	}

	writeJSON(w, resp, http.StatusOK)
}

func (handler *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.users.logout")
	defer span.End()

	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	if err := handler.service.Logout(ctx, identity.Token); err != nil {
		writeError(w, "logout", err)
		return
	}

	pkg.WriteTextResponseOK(w, "logged-out")
}

func (handler *Handler) HandleGetProfile(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.users.profile.get")
	defer span.End()

	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	user, err := handler.service.Profile(ctx, identity.UserID)
	if err != nil {
		writeError(w, "get profile", err)
		return
	}

	writeJSON(w, user, http.StatusOK)
}

func (handler *Handler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.users.profile.update")
	defer span.End()

	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	if !pkg.IsJSONRequest(r) {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	var update ProfileUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		log.Tracef("update profile, unmarshal json params: %s", err)
		http.Error(w, "update profile failed", http.StatusBadRequest)
		return
	}

	user, err := handler.service.UpdateProfile(ctx, identity.UserID, update)
	if err != nil {
		writeError(w, "update profile", err)
		return
	}

	writeJSON(w, user, http.StatusOK)
}

func writeError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrWrongCredentials):
		http.Error(w, "error, wrong credentials", http.StatusUnauthorized)
	case errors.Is(err, ErrEmailTaken):
		http.Error(w, "error, email already registered", http.StatusConflict)
	case errors.Is(err, ErrUserNotFound):
		http.Error(w, "user not found", http.StatusNotFound)
	default:
		log.Errorf("%s: %s", op, err)
		http.Error(w, op+" failed", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, v any, status int) {
	respBytes, err := json.Marshal(v)
	if err != nil {
		log.Errorf("marshal response: %s", err)
		http.Error(w, "marshal response failed", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, respBytes, status)
}
