package entries

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/2beens/pushups/internal/auth"
	"github.com/2beens/pushups/internal/pushups/streaks"
	"github.com/2beens/pushups/internal/telemetry/tracing"
	"github.com/2beens/pushups/pkg"
)

//go:generate mockgen -source=$GOFILE -destination=handler_mocks_test.go -package=entries_test

const TimezoneHeader = "X-Timezone"

type entriesService interface {
	Submit(ctx context.Context, userID int, req SubmitRequest) (*Result, error)
	Update(ctx context.Context, userID int, entryID string, req UpdateRequest) (*Result, error)
	Delete(ctx context.Context, userID int, entryID string, req DeleteRequest) (*Result, error)
	List(ctx context.Context, userID int, startDate, endDate string) ([]Entry, error)
	Streaks(ctx context.Context, userID int) (streaks.State, error)
}

type Handler struct {
	service entriesService
}

func NewHandler(service entriesService) *Handler {
	return &Handler{
		service: service,
	}
}

func (handler *Handler) SetupRoutes(mainRouter *mux.Router) {
	pushupsRouter := mainRouter.PathPrefix("/pushups").Subrouter()
	pushupsRouter.HandleFunc("", handler.HandleSubmit).Methods("POST", "OPTIONS").Name("submit-entry")
	pushupsRouter.HandleFunc("", handler.HandleList).Methods("GET", "OPTIONS").Name("list-entries")
	pushupsRouter.HandleFunc("/streaks", handler.HandleStreaks).Methods("GET", "OPTIONS").Name("get-streaks")
	pushupsRouter.HandleFunc("/{id}", handler.HandleUpdate).Methods("PUT", "OPTIONS").Name("update-entry")
	pushupsRouter.HandleFunc("/{id}", handler.HandleDelete).Methods("DELETE", "OPTIONS").Name("delete-entry")
}

func (handler *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.entries.submit")
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

	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Tracef("submit entry, unmarshal json params: %s", err)
		http.Error(w, "submit entry failed", http.StatusBadRequest)
		return
	}
	req.Timezone, req.ClientIP = timezoneHints(r)

	result, err := handler.service.Submit(ctx, identity.UserID, req)
	if err != nil {
		writeError(w, "submit entry", err)
		return
	}
	span.SetAttributes(attribute.Bool("entry.created", result.Created))

	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	writeJSON(w, result, status)
}

func (handler *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.entries.update")
	defer span.End()

	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	entryID := mux.Vars(r)["id"]
	if entryID == "" {
		http.Error(w, "error, entry id empty", http.StatusBadRequest)
		return
	}

	if !pkg.IsJSONRequest(r) {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Tracef("update entry, unmarshal json params: %s", err)
		http.Error(w, "update entry failed", http.StatusBadRequest)
		return
	}
	if req.Count == nil {
		http.Error(w, "error, count missing", http.StatusBadRequest)
		return
	}

	req.Timezone, req.ClientIP = timezoneHints(r)

	result, err := handler.service.Update(ctx, identity.UserID, entryID, req)
	if err != nil {
		writeError(w, "update entry", err)
		return
	}

	writeJSON(w, result, http.StatusOK)
}

func (handler *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.entries.delete")
	defer span.End()

	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	entryID := mux.Vars(r)["id"]
	if entryID == "" {
		http.Error(w, "error, entry id empty", http.StatusBadRequest)
		return
	}

	var req DeleteRequest
	req.Timezone, req.ClientIP = timezoneHints(r)

	result, err := handler.service.Delete(ctx, identity.UserID, entryID, req)
	if err != nil {
		writeError(w, "delete entry", err)
		return
	}

	writeJSON(w, result, http.StatusOK)
}

func (handler *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.entries.list")
	defer span.End()

	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	query := r.URL.Query()
	list, err := handler.service.List(ctx, identity.UserID, query.Get("startDate"), query.Get("endDate"))
	if err != nil {
		writeError(w, "list entries", err)
		return
	}

	writeJSON(w, ListResponse{Entries: list, Total: len(list)}, http.StatusOK)
}

func (handler *Handler) HandleStreaks(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.entries.streaks")
	defer span.End()

	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	state, err := handler.service.Streaks(ctx, identity.UserID)
	if err != nil {
		writeError(w, "get streaks", err)
		return
	}

	writeJSON(w, state, http.StatusOK)
}

// timezoneHints reads the explicit timezone header and the client IP used for
// the geo lookup. Local addresses give no IP.
func timezoneHints(r *http.Request) (timezone, clientIP string) {
	timezone = r.Header.Get(TimezoneHeader)
	if ip, err := pkg.ReadUserIP(r); err == nil && ip != pkg.LocalhostIP {
		clientIP = ip
	}
	return timezone, clientIP
}

func writeError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
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
