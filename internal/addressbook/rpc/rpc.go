// Package rpc exposes the address book to other wallet services as JSON
// method endpoints. Callers on the internal network are trusted: requests
// carry the already-verified user id and responses return raw network ids
// without enrichment.
package rpc

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/infinex-exchange/wallet.addressbook/internal/addressbook/models"
	"github.com/infinex-exchange/wallet.addressbook/internal/addressbook/service"
	"github.com/infinex-exchange/wallet.addressbook/internal/platform/middleware"
	"github.com/infinex-exchange/wallet.addressbook/internal/transport/http/shared"
	dErrors "github.com/infinex-exchange/wallet.addressbook/pkg/domain-errors"
	"github.com/infinex-exchange/wallet.addressbook/pkg/pagination"
)

// Service defines the record operations the RPC surface maps onto.
type Service interface {
	CreateAddress(ctx context.Context, p service.CreateAddressParams) (int64, error)
	GetAddress(ctx context.Context, id int64) (*models.AddressBookEntry, error)
	ListAddresses(ctx context.Context, f models.Filter, w pagination.Window) ([]*models.AddressBookEntry, bool, error)
	EditAddress(ctx context.Context, id int64, name string) error
	DeleteAddress(ctx context.Context, id int64) error
}

// Handler handles the service-to-service method endpoints.
type Handler struct {
	logger      *slog.Logger
	addressbook Service
}

func New(addressbook Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, addressbook: addressbook}
}

// Register registers the method endpoints with the chi router.
func (h *Handler) Register(r chi.Router) {
	rpcRouter := chi.NewRouter()
	rpcRouter.Use(middleware.Recovery(h.logger))
	rpcRouter.Use(middleware.RequestID)
	rpcRouter.Use(middleware.Logger(h.logger))
	rpcRouter.Post("/createAddress", h.handleCreateAddress)
	rpcRouter.Post("/getAddress", h.handleGetAddress)
	rpcRouter.Post("/getAddresses", h.handleGetAddresses)
	rpcRouter.Post("/editAddress", h.handleEditAddress)
	rpcRouter.Post("/deleteAddress", h.handleDeleteAddress)

	r.Mount("/rpc", rpcRouter)
}

type entryPayload struct {
	ID        int64   `json:"adbkid"`
	OwnerID   int64   `json:"uid"`
	NetworkID string  `json:"netid"`
	Name      string  `json:"name"`
	Address   string  `json:"address"`
	Memo      *string `json:"memo"`
}

func toEntryPayload(e *models.AddressBookEntry) entryPayload {
	return entryPayload{
		ID:        e.ID,
		OwnerID:   e.OwnerID,
		NetworkID: e.NetworkID,
		Name:      e.Name,
		Address:   e.Address,
		Memo:      e.Memo,
	}
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid request body"))
		return false
	}
	return true
}

type createAddressRequest struct {
	UID     int64   `json:"uid"`
	NetID   string  `json:"netid"`
	Address string  `json:"address"`
	Name    string  `json:"name"`
	Memo    *string `json:"memo"`
}

func (h *Handler) handleCreateAddress(w http.ResponseWriter, r *http.Request) {
	var req createAddressRequest
	if !h.decode(w, r, &req) {
		return
	}

	id, err := h.addressbook.CreateAddress(r.Context(), service.CreateAddressParams{
		OwnerID:   req.UID,
		NetworkID: req.NetID,
		Address:   req.Address,
		Name:      req.Name,
		Memo:      req.Memo,
	})
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]int64{"adbkid": id})
}

type addressIDRequest struct {
	ID int64 `json:"adbkid"`
}

func (h *Handler) handleGetAddress(w http.ResponseWriter, r *http.Request) {
	var req addressIDRequest
	if !h.decode(w, r, &req) {
		return
	}

	entry, err := h.addressbook.GetAddress(r.Context(), req.ID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toEntryPayload(entry))
}

type getAddressesRequest struct {
	UID    *int64  `json:"uid"`
	NetID  *string `json:"netid"`
	Query  string  `json:"q"`
	Offset int     `json:"offset"`
	Limit  int     `json:"limit"`
}

type getAddressesResponse struct {
	Addresses []entryPayload `json:"addresses"`
	More      bool           `json:"more"`
}

func (h *Handler) handleGetAddresses(w http.ResponseWriter, r *http.Request) {
	var req getAddressesRequest
	if !h.decode(w, r, &req) {
		return
	}

	filter := models.Filter{OwnerID: req.UID, NetworkID: req.NetID, Search: req.Query}
	window := pagination.NewWindow(req.Offset, req.Limit)

	entries, more, err := h.addressbook.ListAddresses(r.Context(), filter, window)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	resp := getAddressesResponse{Addresses: make([]entryPayload, 0, len(entries)), More: more}
	for _, e := range entries {
		resp.Addresses = append(resp.Addresses, toEntryPayload(e))
	}
	shared.WriteJSON(w, http.StatusOK, resp)
}

type editAddressRequest struct {
	ID   int64  `json:"adbkid"`
	Name string `json:"name"`
}

func (h *Handler) handleEditAddress(w http.ResponseWriter, r *http.Request) {
	var req editAddressRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.addressbook.EditAddress(r.Context(), req.ID, req.Name); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleDeleteAddress(w http.ResponseWriter, r *http.Request) {
	var req addressIDRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.addressbook.DeleteAddress(r.Context(), req.ID); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
