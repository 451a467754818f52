package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/parley-engine/parley/pkg/card"
	"github.com/parley-engine/parley/pkg/effect"
)

// CardsHandler serves the read-only card catalog.
// Routes:
// GET /v1/cards            - list cards, filterable by type/persistence/depth
// GET /v1/cards/{id}       - one card with its effect descriptions
type CardsHandler struct {
	catalog *card.Catalog
	logger  *slog.Logger
}

func NewCardsHandler(catalog *card.Catalog, logger *slog.Logger) *CardsHandler {
	return &CardsHandler{catalog: catalog, logger: logger}
}

// CardView pairs a definition with its derived effect descriptions, so
// clients can show mechanical consequences before a play is confirmed.
type CardView struct {
	*card.Card
	SuccessPreview []effect.Description `json:"success_preview"`
	FailurePreview []effect.Description `json:"failure_preview"`
}

func (h *CardsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{Error: "method not allowed"})
		return
	}

	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/cards"), "/")
	if id != "" {
		c, err := h.catalog.Get(id)
		if err != nil {
			writeJSON(w, http.StatusNotFound, ErrorResponse{Error: err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, CardView{
			Card:           c,
			SuccessPreview: effect.DescribeList(c.Effects.Success),
			FailurePreview: effect.DescribeList(c.Effects.Failure),
		})
		return
	}

	filter := card.Filter{
		Type:        card.CardType(r.URL.Query().Get("type")),
		Persistence: card.Persistence(r.URL.Query().Get("persistence")),
	}
	if v := r.URL.Query().Get("depth"); v != "" {
		depth, err := strconv.Atoi(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid depth"})
			return
		}
		filter.Depth = &depth
	}
	if v := r.URL.Query().Get("max_depth"); v != "" {
		maxDepth, err := strconv.Atoi(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid max_depth"})
			return
		}
		filter.MaxDepth = &maxDepth
	}

	writeJSON(w, http.StatusOK, h.catalog.Enumerate(filter))
}
