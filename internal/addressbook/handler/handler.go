// Package handler is the user-facing REST surface of the address book.
// Every route runs behind bearer auth and only ever exposes the caller's
// own entries.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/infinex-exchange/wallet.addressbook/internal/addressbook/enrich"
	"github.com/infinex-exchange/wallet.addressbook/internal/addressbook/models"
	"github.com/infinex-exchange/wallet.addressbook/internal/auth/revocation"
	"github.com/infinex-exchange/wallet.addressbook/internal/platform/metrics"
	"github.com/infinex-exchange/wallet.addressbook/internal/platform/middleware"
	"github.com/infinex-exchange/wallet.addressbook/internal/transport/http/shared"
	dErrors "github.com/infinex-exchange/wallet.addressbook/pkg/domain-errors"
	"github.com/infinex-exchange/wallet.addressbook/pkg/pagination"
)

// Service defines the address book operations the REST surface needs.
type Service interface {
	GetAddress(ctx context.Context, id int64) (*models.AddressBookEntry, error)
	ListAddresses(ctx context.Context, f models.Filter, w pagination.Window) ([]*models.AddressBookEntry, bool, error)
	EditAddress(ctx context.Context, id int64, name string) error
	DeleteAddress(ctx context.Context, id int64) error
}

// Enricher resolves network descriptors for outbound entries.
type Enricher interface {
	Enrich(ctx context.Context, entries []*models.AddressBookEntry) ([]*enrich.EnrichedEntry, error)
	EnrichOne(ctx context.Context, entry *models.AddressBookEntry) (*enrich.EnrichedEntry, error)
	ResolveSymbol(ctx context.Context, symbol string) (string, bool, error)
}

// Handler handles the authenticated address book endpoints.
type Handler struct {
	logger       *slog.Logger
	addressbook  Service
	enricher     Enricher
	metrics      *metrics.Metrics
	jwtValidator middleware.JWTValidator
	trl          revocation.TokenRevocationList
}

// New creates a new address book Handler.
func New(
	addressbook Service,
	enricher Enricher,
	logger *slog.Logger,
	metrics *metrics.Metrics,
	jwtValidator middleware.JWTValidator,
	trl revocation.TokenRevocationList) *Handler {
	return &Handler{
		logger:       logger,
		addressbook:  addressbook,
		enricher:     enricher,
		metrics:      metrics,
		jwtValidator: jwtValidator,
		trl:          trl,
	}
}

// Register registers the address book routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	adbkRouter := chi.NewRouter()
	adbkRouter.Use(middleware.Recovery(h.logger))
	adbkRouter.Use(middleware.RequestID)
	adbkRouter.Use(middleware.Logger(h.logger))
	if h.metrics != nil {
		adbkRouter.Use(h.metrics.Middleware)
	}
	adbkRouter.Use(middleware.RequireAuth(h.jwtValidator, h.trl, h.logger))
	adbkRouter.Get("/", h.handleList)
	adbkRouter.Get("/{adbkid}", h.handleGet)
	adbkRouter.Patch("/{adbkid}", h.handleEdit)
	adbkRouter.Delete("/{adbkid}", h.handleDelete)

	r.Mount("/addressbook", adbkRouter)
}

type networkResponse struct {
	ID      string `json:"netid"`
	Symbol  string `json:"symbol"`
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
}

type addressResponse struct {
	ID      int64           `json:"adbkid"`
	Address string          `json:"address"`
	Name    string          `json:"name"`
	Memo    *string         `json:"memo,omitempty"`
	Network networkResponse `json:"network"`
}

type listResponse struct {
	Addresses []addressResponse `json:"addresses"`
	More      bool              `json:"more"`
}

func toAddressResponse(e *enrich.EnrichedEntry) addressResponse {
	return addressResponse{
		ID:      e.ID,
		Address: e.Address,
		Name:    e.Name,
		Memo:    e.Memo,
		Network: networkResponse{
			ID:      e.Network.ID,
			Symbol:  e.Network.Symbol,
			Name:    e.Network.Name,
			Enabled: e.Network.Enabled,
		},
	}
}

// handleList lists the caller's entries, optionally filtered by coin symbol
// and a free-text search over name and address.
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	if userID == 0 {
		h.logger.ErrorContext(ctx, "userID missing from context despite auth middleware",
			"request_id", middleware.GetRequestID(ctx),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}

	filter := models.Filter{OwnerID: &userID, Search: r.URL.Query().Get("q")}

	if symbol := r.URL.Query().Get("network"); symbol != "" {
		netid, ok, err := h.enricher.ResolveSymbol(ctx, symbol)
		if err != nil {
			h.logger.ErrorContext(ctx, "symbol resolution failed",
				"symbol", symbol,
				"error", err.Error(),
				"request_id", middleware.GetRequestID(ctx),
			)
			shared.WriteError(w, err)
			return
		}
		if !ok {
			// Unknown symbol filters everything out rather than erroring.
			shared.WriteJSON(w, http.StatusOK, listResponse{Addresses: []addressResponse{}})
			return
		}
		filter.NetworkID = &netid
	}

	window := pagination.NewWindow(queryInt(r, "offset"), queryInt(r, "limit"))

	entries, more, err := h.addressbook.ListAddresses(ctx, filter, window)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	enriched, err := h.enricher.Enrich(ctx, entries)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	resp := listResponse{Addresses: make([]addressResponse, 0, len(enriched)), More: more}
	for _, e := range enriched {
		resp.Addresses = append(resp.Addresses, toAddressResponse(e))
	}
	shared.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	entry, ok := h.fetchOwned(w, r)
	if !ok {
		return
	}

	enriched, err := h.enricher.EnrichOne(ctx, entry)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toAddressResponse(enriched))
}

type editRequest struct {
	Name string `json:"name"`
}

func (h *Handler) handleEdit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	entry, ok := h.fetchOwned(w, r)
	if !ok {
		return
	}

	var req editRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid request body"))
		return
	}

	if err := h.addressbook.EditAddress(ctx, entry.ID, req.Name); err != nil {
		shared.WriteError(w, err)
		return
	}

	updated, err := h.addressbook.GetAddress(ctx, entry.ID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	enriched, err := h.enricher.EnrichOne(ctx, updated)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toAddressResponse(enriched))
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	entry, ok := h.fetchOwned(w, r)
	if !ok {
		return
	}

	if err := h.addressbook.DeleteAddress(ctx, entry.ID); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// fetchOwned loads the entry from the path and enforces that it belongs to
// the caller. Foreign entries come back as 403, missing ones as 404.
func (h *Handler) fetchOwned(w http.ResponseWriter, r *http.Request) (*models.AddressBookEntry, bool) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	if userID == 0 {
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return nil, false
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "adbkid"), 10, 64)
	if err != nil || id < 1 {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "adbkid must be a positive integer"))
		return nil, false
	}

	entry, err := h.addressbook.GetAddress(ctx, id)
	if err != nil {
		shared.WriteError(w, err)
		return nil, false
	}
	if entry.OwnerID != userID {
		shared.WriteError(w, dErrors.New(dErrors.CodeForbidden, "address belongs to another user"))
		return nil, false
	}
	return entry, true
}

func queryInt(r *http.Request, key string) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}
