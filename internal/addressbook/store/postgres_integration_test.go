//go:build integration

package store_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/infinex-exchange/wallet.addressbook/internal/addressbook/models"
	"github.com/infinex-exchange/wallet.addressbook/internal/addressbook/service"
	"github.com/infinex-exchange/wallet.addressbook/internal/addressbook/store"
	dErrors "github.com/infinex-exchange/wallet.addressbook/pkg/domain-errors"
	"github.com/infinex-exchange/wallet.addressbook/pkg/pagination"
	"github.com/infinex-exchange/wallet.addressbook/pkg/platform/sentinel"
	"github.com/infinex-exchange/wallet.addressbook/pkg/platform/tx"
	"github.com/infinex-exchange/wallet.addressbook/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	store *store.Postgres
	svc   *service.Service
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.pg = containers.NewPostgresContainer(s.T())
	s.store = store.NewPostgres(s.pg.DB)
	s.Require().NoError(s.store.EnsureSchema(context.Background()))
	s.svc = service.New(s.store, tx.NewSQLRunner(s.pg.DB))
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.pg.TruncateAddressBook(context.Background()))
}

func (s *PostgresStoreSuite) insert(owner int64, netid, address, name string, memo *string) int64 {
	id, err := s.store.Insert(context.Background(), &models.AddressBookEntry{
		OwnerID:   owner,
		NetworkID: netid,
		Address:   address,
		Name:      name,
		Memo:      memo,
	})
	s.Require().NoError(err)
	return id
}

func (s *PostgresStoreSuite) TestInsertAndFind() {
	memo := "777"
	id := s.insert(1, "xlm", "GABC", "Cold Storage", &memo)
	s.Positive(id)

	got, err := s.store.FindByID(context.Background(), id)
	s.Require().NoError(err)
	s.Equal(int64(1), got.OwnerID)
	s.Equal("xlm", got.NetworkID)
	s.Equal("GABC", got.Address)
	s.Equal("Cold Storage", got.Name)
	s.Require().NotNil(got.Memo)
	s.Equal("777", *got.Memo)

	_, err = s.store.FindByID(context.Background(), id+100)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestMonotonicIDsSurviveDelete() {
	first := s.insert(1, "eth", "0xaaa", "A", nil)
	second := s.insert(1, "eth", "0xbbb", "B", nil)
	s.Greater(second, first)

	s.Require().NoError(s.store.Delete(context.Background(), second))

	third := s.insert(1, "eth", "0xccc", "C", nil)
	s.Greater(third, second, "sequence never reuses a freed id")
}

func (s *PostgresStoreSuite) TestUniqueIndexSafetyNet() {
	s.insert(1, "eth", "0xaaa", "Alice", nil)

	_, err := s.store.Insert(context.Background(), &models.AddressBookEntry{
		OwnerID: 1, NetworkID: "eth", Address: "0xbbb", Name: "Alice",
	})
	s.ErrorIs(err, sentinel.ErrConflict, "duplicate name trips the index")

	_, err = s.store.Insert(context.Background(), &models.AddressBookEntry{
		OwnerID: 1, NetworkID: "eth", Address: "0xaaa", Name: "Other",
	})
	s.ErrorIs(err, sentinel.ErrConflict, "duplicate address with NULL memo trips the index")
}

func (s *PostgresStoreSuite) TestNullMemoDistinctFromEmpty() {
	s.insert(1, "xlm", "GABC", "No Memo", nil)

	empty := ""
	_, err := s.store.Insert(context.Background(), &models.AddressBookEntry{
		OwnerID: 1, NetworkID: "xlm", Address: "GABC", Name: "Empty Memo", Memo: &empty,
	})
	s.NoError(err, "empty string memo is a different destination than NULL")

	_, err = s.store.Insert(context.Background(), &models.AddressBookEntry{
		OwnerID: 1, NetworkID: "xlm", Address: "GABC", Name: "Another",
	})
	s.ErrorIs(err, sentinel.ErrConflict, "NULL memo compares equal to NULL memo")
}

func (s *PostgresStoreSuite) TestFindConflictsPrefersName() {
	s.insert(1, "eth", "0xaaa", "Alice", nil)
	s.insert(1, "eth", "0xbbb", "Bob", nil)

	err := tx.NewSQLRunner(s.pg.DB).RunInTx(context.Background(), func(ctx context.Context) error {
		hit, err := s.store.FindConflicts(ctx, 1, "eth", "Alice", "0xbbb", nil)
		s.Require().NoError(err)
		s.Equal("Alice", hit.Name, "name collision reported over address collision")
		return nil
	})
	s.Require().NoError(err)

	err = tx.NewSQLRunner(s.pg.DB).RunInTx(context.Background(), func(ctx context.Context) error {
		_, err := s.store.FindConflicts(ctx, 1, "eth", "Carol", "0xccc", nil)
		return err
	})
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestListFilterSearchPagination() {
	for i := 0; i < 5; i++ {
		s.insert(1, "eth", fmt.Sprintf("0x%04d", i), fmt.Sprintf("Wallet %d", i), nil)
	}
	s.insert(2, "eth", "0xother", "Foreign", nil)

	owner := int64(1)
	entries, more, err := s.store.List(context.Background(), models.Filter{OwnerID: &owner}, pagination.NewWindow(0, 3))
	s.Require().NoError(err)
	s.Len(entries, 3)
	s.True(more)
	for i := 1; i < len(entries); i++ {
		s.Greater(entries[i].ID, entries[i-1].ID, "ascending id order")
	}

	entries, more, err = s.store.List(context.Background(), models.Filter{OwnerID: &owner}, pagination.NewWindow(3, 3))
	s.Require().NoError(err)
	s.Len(entries, 2)
	s.False(more)

	entries, _, err = s.store.List(context.Background(), models.Filter{OwnerID: &owner, Search: "0x0004"}, pagination.NewWindow(0, 50))
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.Equal("Wallet 4", entries[0].Name)
}

func (s *PostgresStoreSuite) TestUpdateAndDelete() {
	id := s.insert(1, "eth", "0xaaa", "Alice", nil)

	s.Require().NoError(s.store.UpdateName(context.Background(), id, "Alice2"))
	got, err := s.store.FindByID(context.Background(), id)
	s.Require().NoError(err)
	s.Equal("Alice2", got.Name)

	s.ErrorIs(s.store.UpdateName(context.Background(), id+100, "Ghost"), sentinel.ErrNotFound)

	s.Require().NoError(s.store.Delete(context.Background(), id))
	s.ErrorIs(s.store.Delete(context.Background(), id), sentinel.ErrNotFound)
}

// TestConcurrentCreateSameName drives the full service path against real
// row locks: many writers race on one name and exactly one may win.
func (s *PostgresStoreSuite) TestConcurrentCreateSameName() {
	const writers = 10

	var wg sync.WaitGroup
	errs := make([]error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.svc.CreateAddress(context.Background(), service.CreateAddressParams{
				OwnerID:   1,
				NetworkID: "eth",
				Address:   fmt.Sprintf("0x%04d", i),
				Name:      "Shared Name",
			})
		}(i)
	}
	wg.Wait()

	var won int
	for _, err := range errs {
		if err == nil {
			won++
		} else {
			s.True(dErrors.HasCode(err, dErrors.CodeConflict), "losers fail with a conflict, got %v", err)
		}
	}
	s.Equal(1, won)

	owner := int64(1)
	entries, _, err := s.store.List(context.Background(), models.Filter{OwnerID: &owner}, pagination.NewWindow(0, 50))
	s.Require().NoError(err)
	s.Len(entries, 1)
}

func (s *PostgresStoreSuite) TestConcurrentCreateSameDestination() {
	const writers = 10
	memo := "42"

	var wg sync.WaitGroup
	errs := make([]error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.svc.CreateAddress(context.Background(), service.CreateAddressParams{
				OwnerID:   1,
				NetworkID: "xlm",
				Address:   "GSHARED",
				Name:      fmt.Sprintf("Name %d", i),
				Memo:      &memo,
			})
		}(i)
	}
	wg.Wait()

	var won int
	for _, err := range errs {
		if err == nil {
			won++
		}
	}
	s.Equal(1, won, "one destination, one row")
}
