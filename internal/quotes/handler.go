package quotes

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/2beens/pushups/internal/telemetry/tracing"
	"github.com/2beens/pushups/pkg"
)

type quotesService interface {
	Today(ctx context.Context) (*Quote, error)
	Random() *Quote
}

type Handler struct {
	service quotesService
}

func NewHandler(service quotesService) *Handler {
	return &Handler{
		service: service,
	}
}

func (handler *Handler) SetupRoutes(mainRouter *mux.Router) {
	mainRouter.HandleFunc("/quote/today", handler.handleToday).Methods("GET").Name("quote-today")
	mainRouter.HandleFunc("/quote/random", handler.handleRandom).Methods("GET").Name("quote-random")
}

func (handler *Handler) handleToday(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "quotesHandler.today")
	defer span.End()

	quote, err := handler.service.Today(ctx)
	if err != nil {
		log.Errorf("get quote of the day: %s", err)
		http.Error(w, "get quote failed", http.StatusInternalServerError)
		return
	}

	writeQuote(w, quote)
}

func (handler *Handler) handleRandom(w http.ResponseWriter, r *http.Request) {
	_, span := tracing.GlobalTracer.Start(r.Context(), "quotesHandler.random")
	defer span.End()

	writeQuote(w, handler.service.Random())
}

func writeQuote(w http.ResponseWriter, quote *Quote) {
	qBytes, err := json.Marshal(quote)
	if err != nil {
		log.Errorf("marshal quote: %s", err)
		http.Error(w, "marshal quote failed", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, qBytes)
}
