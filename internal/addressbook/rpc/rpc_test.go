package rpc

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"github.com/infinex-exchange/wallet.addressbook/internal/addressbook/service"
	"github.com/infinex-exchange/wallet.addressbook/internal/addressbook/store"
	"github.com/infinex-exchange/wallet.addressbook/pkg/platform/tx"
)

type RPCSuite struct {
	suite.Suite

	router chi.Router
}

func TestRPCSuite(t *testing.T) {
	suite.Run(t, new(RPCSuite))
}

func (s *RPCSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := service.New(store.NewInMemory(), tx.NewMemoryRunner(), service.WithLogger(logger))
	h := New(svc, logger)
	s.router = chi.NewRouter()
	h.Register(s.router)
}

func (s *RPCSuite) call(method string, body any) *httptest.ResponseRecorder {
	raw, err := json.Marshal(body)
	s.Require().NoError(err)
	req := httptest.NewRequest(http.MethodPost, "/rpc/"+method, bytes.NewReader(raw))
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *RPCSuite) create(uid int64, netid, address, name string, memo *string) int64 {
	w := s.call("createAddress", map[string]any{
		"uid": uid, "netid": netid, "address": address, "name": name, "memo": memo,
	})
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var resp map[string]int64
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	return resp["adbkid"]
}

func (s *RPCSuite) TestCreateAndGet() {
	memo := "12345"
	id := s.create(7, "xlm", "GABC", "Cold Storage", &memo)
	s.Equal(int64(1), id)

	w := s.call("getAddress", map[string]any{"adbkid": id})
	s.Require().Equal(http.StatusOK, w.Code)

	var entry entryPayload
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &entry))
	s.Equal(id, entry.ID)
	s.Equal(int64(7), entry.OwnerID)
	s.Equal("xlm", entry.NetworkID, "outputs carry the raw network id")
	s.Equal("GABC", entry.Address)
	s.Require().NotNil(entry.Memo)
	s.Equal("12345", *entry.Memo)
}

func (s *RPCSuite) TestCreateValidation() {
	w := s.call("createAddress", map[string]any{
		"uid": 7, "netid": "eth", "address": "0xabc", "name": "bad/name",
	})
	s.Equal(http.StatusBadRequest, w.Code)
	s.Contains(w.Body.String(), "VALIDATION_ERROR")
}

func (s *RPCSuite) TestCreateMissingUID() {
	w := s.call("createAddress", map[string]any{
		"netid": "eth", "address": "0xabc", "name": "Alice",
	})
	s.Equal(http.StatusBadRequest, w.Code)
	s.Contains(w.Body.String(), "MISSING_DATA")
}

func (s *RPCSuite) TestCreateConflict() {
	s.create(7, "eth", "0xabc", "Alice", nil)

	w := s.call("createAddress", map[string]any{
		"uid": 7, "netid": "eth", "address": "0xother", "name": "Alice",
	})
	s.Equal(http.StatusConflict, w.Code)
	s.Contains(w.Body.String(), "Name already used in address book")
}

func (s *RPCSuite) TestGetAddressesFilters() {
	s.create(7, "eth", "0xabc", "Alice", nil)
	s.create(7, "btc", "bc1xyz", "Bob", nil)
	s.create(8, "eth", "0xdef", "Carol", nil)

	uid := int64(7)
	w := s.call("getAddresses", map[string]any{"uid": uid})
	s.Require().Equal(http.StatusOK, w.Code)
	var resp getAddressesResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.Len(resp.Addresses, 2)
	s.False(resp.More)

	netid := "eth"
	w = s.call("getAddresses", map[string]any{"uid": uid, "netid": netid})
	resp = getAddressesResponse{}
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.Require().Len(resp.Addresses, 1)
	s.Equal("Alice", resp.Addresses[0].Name)

	// No uid filter: an internal caller may scan across owners.
	w = s.call("getAddresses", map[string]any{})
	resp = getAddressesResponse{}
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.Len(resp.Addresses, 3)
}

func (s *RPCSuite) TestGetAddressesSearchAndWindow() {
	s.create(7, "eth", "0xaaa", "Savings", nil)
	s.create(7, "eth", "0xbbb", "Spending", nil)
	s.create(7, "eth", "0xccc", "Other", nil)

	w := s.call("getAddresses", map[string]any{"uid": 7, "q": "ing"})
	var resp getAddressesResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.Len(resp.Addresses, 2, "search covers name and address")

	w = s.call("getAddresses", map[string]any{"uid": 7, "offset": 0, "limit": 2})
	resp = getAddressesResponse{}
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.Len(resp.Addresses, 2)
	s.True(resp.More)
}

func (s *RPCSuite) TestEditAddress() {
	id := s.create(7, "eth", "0xabc", "Alice", nil)

	w := s.call("editAddress", map[string]any{"adbkid": id, "name": "Alice2"})
	s.Equal(http.StatusNoContent, w.Code)

	w = s.call("getAddress", map[string]any{"adbkid": id})
	var entry entryPayload
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &entry))
	s.Equal("Alice2", entry.Name)
}

func (s *RPCSuite) TestEditUnknownAddress() {
	w := s.call("editAddress", map[string]any{"adbkid": 99, "name": "Ghost"})
	s.Equal(http.StatusNotFound, w.Code)
	s.Contains(w.Body.String(), "Address 99 not found")
}

func (s *RPCSuite) TestDeleteAddress() {
	id := s.create(7, "eth", "0xabc", "Alice", nil)

	w := s.call("deleteAddress", map[string]any{"adbkid": id})
	s.Equal(http.StatusNoContent, w.Code)

	w = s.call("deleteAddress", map[string]any{"adbkid": id})
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *RPCSuite) TestInvalidBody() {
	req := httptest.NewRequest(http.MethodPost, "/rpc/createAddress", bytes.NewReader([]byte("{not json")))
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	s.Equal(http.StatusBadRequest, w.Code)
}
