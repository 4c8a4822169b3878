// Package service implements the address book record service: invariant
// preserving CRUD over withdrawal destinations.
//
// Uniqueness is enforced by an explicit lock-then-check-then-write sequence
// inside one transaction. Two concurrent creates for the same owner and
// network would otherwise both pass a naive existence check and both insert;
// the FOR UPDATE locks serialize conflicting writers on that key space. The
// storage-level unique indexes remain as a second line of defense and
// surface through the same Conflict kind.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	adbkmetrics "github.com/infinex-exchange/wallet.addressbook/internal/addressbook/metrics"
	"github.com/infinex-exchange/wallet.addressbook/internal/addressbook/models"
	"github.com/infinex-exchange/wallet.addressbook/internal/addressbook/store"
	"github.com/infinex-exchange/wallet.addressbook/internal/platform/events"
	dErrors "github.com/infinex-exchange/wallet.addressbook/pkg/domain-errors"
	"github.com/infinex-exchange/wallet.addressbook/pkg/pagination"
	"github.com/infinex-exchange/wallet.addressbook/pkg/platform/sentinel"
	"github.com/infinex-exchange/wallet.addressbook/pkg/platform/tx"
)

// AuditPublisher emits audit events for mutations. Publishing is fail-open;
// the service logs emission failures and proceeds.
type AuditPublisher interface {
	Emit(ctx context.Context, ev events.Event) error
}

// Service is the address book record service.
type Service struct {
	store   store.Store
	tx      tx.Runner
	logger  *slog.Logger
	metrics *adbkmetrics.Metrics
	audit   AuditPublisher
	tracer  trace.Tracer
}

// Option configures the Service.
type Option func(*Service)

// WithLogger sets the logger used for audit emission failures.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *adbkmetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithAuditPublisher sets the audit event publisher.
func WithAuditPublisher(p AuditPublisher) Option {
	return func(s *Service) { s.audit = p }
}

// New constructs the record service over a store and its transaction runner.
// The runner must belong to the same store: SQLRunner for Postgres,
// MemoryRunner for the in-memory store.
func New(st store.Store, runner tx.Runner, opts ...Option) *Service {
	s := &Service{
		store:  st,
		tx:     runner,
		tracer: otel.Tracer("wallet.addressbook/addressbook"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateAddressParams carries the immutable fields of a new entry.
type CreateAddressParams struct {
	OwnerID   int64
	NetworkID string
	Address   string
	Name      string
	Memo      *string
}

func (p CreateAddressParams) validate() error {
	if p.OwnerID == 0 {
		return dErrors.New(dErrors.CodeMissingData, "uid")
	}
	if p.OwnerID < 0 {
		return dErrors.New(dErrors.CodeValidation, "uid")
	}
	if p.NetworkID == "" {
		return dErrors.New(dErrors.CodeMissingData, "netid")
	}
	if p.Address == "" {
		return dErrors.New(dErrors.CodeMissingData, "address")
	}
	if p.Name == "" {
		return dErrors.New(dErrors.CodeMissingData, "name")
	}
	return models.ValidateName(p.Name)
}

// CreateAddress stores a new withdrawal destination and returns its id.
//
// Inside one transaction it locks every existing row for the owner/network
// that collides on name or on (address, memo), rejects with Conflict when a
// collision exists, and inserts otherwise.
func (s *Service) CreateAddress(ctx context.Context, p CreateAddressParams) (int64, error) {
	ctx, span := s.tracer.Start(ctx, "addressbook.CreateAddress")
	defer span.End()

	if s.metrics != nil {
		defer s.metrics.ObserveCreate(time.Now())
	}

	if err := p.validate(); err != nil {
		return 0, err
	}

	var id int64
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		conflict, err := s.store.FindConflicts(txCtx, p.OwnerID, p.NetworkID, p.Name, p.Address, p.Memo)
		if err == nil {
			if conflict.Name == p.Name {
				return dErrors.New(dErrors.CodeConflict, "Name already used in address book")
			}
			return dErrors.Newf(dErrors.CodeConflict, "Address already stored as %q", conflict.Name)
		}
		if !errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check address book conflicts")
		}

		id, err = s.store.Insert(txCtx, &models.AddressBookEntry{
			OwnerID:   p.OwnerID,
			NetworkID: p.NetworkID,
			Address:   p.Address,
			Name:      p.Name,
			Memo:      p.Memo,
		})
		if errors.Is(err, sentinel.ErrConflict) {
			// The unique index fired despite the lock-and-check. Same kind
			// as the application-level rejection.
			return dErrors.New(dErrors.CodeConflict, "Name or address already used in address book")
		}
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store address")
		}
		return nil
	})
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeConflict) && s.metrics != nil {
			s.metrics.Conflicts.Inc()
		}
		return 0, err
	}

	if s.metrics != nil {
		s.metrics.AddressesCreated.Inc()
	}
	s.emit(ctx, events.Event{
		Type:      events.TypeAddressCreated,
		EntryID:   id,
		OwnerID:   p.OwnerID,
		NetworkID: p.NetworkID,
		Name:      p.Name,
	})
	return id, nil
}

// GetAddress returns one entry by id.
func (s *Service) GetAddress(ctx context.Context, id int64) (*models.AddressBookEntry, error) {
	ctx, span := s.tracer.Start(ctx, "addressbook.GetAddress")
	defer span.End()

	if err := models.ValidateID(id); err != nil {
		return nil, err
	}
	e, err := s.store.FindByID(ctx, id)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Newf(dErrors.CodeNotFound, "Address %d not found", id)
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load address")
	}
	return e, nil
}

// ListAddresses returns the entries matching the filter in ascending id
// order, plus a flag reporting whether rows exist beyond the window.
func (s *Service) ListAddresses(ctx context.Context, f models.Filter, w pagination.Window) ([]*models.AddressBookEntry, bool, error) {
	ctx, span := s.tracer.Start(ctx, "addressbook.ListAddresses")
	defer span.End()

	if s.metrics != nil {
		defer s.metrics.ObserveList(time.Now())
	}

	entries, more, err := s.store.List(ctx, f, w)
	if err != nil {
		return nil, false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list addresses")
	}
	return entries, more, nil
}

// EditAddress renames an entry. The name is the only mutable field.
//
// Inside one transaction it locks the target row, then locks and checks for
// another row in the same owner/network space already holding the new name.
func (s *Service) EditAddress(ctx context.Context, id int64, name string) error {
	ctx, span := s.tracer.Start(ctx, "addressbook.EditAddress")
	defer span.End()

	if err := models.ValidateID(id); err != nil {
		return err
	}
	if name == "" {
		return dErrors.New(dErrors.CodeMissingData, "name")
	}
	if err := models.ValidateName(name); err != nil {
		return err
	}

	var renamed *models.AddressBookEntry
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		e, err := s.store.FindByIDForUpdate(txCtx, id)
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Newf(dErrors.CodeNotFound, "Address %d not found", id)
		}
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load address")
		}

		taken, err := s.store.NameTaken(txCtx, e.OwnerID, e.NetworkID, name, id)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check address book conflicts")
		}
		if taken {
			return dErrors.New(dErrors.CodeConflict, "Name already used in address book")
		}

		if err := s.store.UpdateName(txCtx, id, name); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to rename address")
		}
		renamed = e
		return nil
	})
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeConflict) && s.metrics != nil {
			s.metrics.Conflicts.Inc()
		}
		return err
	}

	s.emit(ctx, events.Event{
		Type:      events.TypeAddressRenamed,
		EntryID:   id,
		OwnerID:   renamed.OwnerID,
		NetworkID: renamed.NetworkID,
		Name:      name,
	})
	return nil
}

// DeleteAddress removes an entry by id. Deletion is unconditional: no
// dependency checks beyond existence.
func (s *Service) DeleteAddress(ctx context.Context, id int64) error {
	ctx, span := s.tracer.Start(ctx, "addressbook.DeleteAddress")
	defer span.End()

	if err := models.ValidateID(id); err != nil {
		return err
	}

	var removed *models.AddressBookEntry
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		e, err := s.store.FindByIDForUpdate(txCtx, id)
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Newf(dErrors.CodeNotFound, "Address %d not found", id)
		}
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load address")
		}
		if err := s.store.Delete(txCtx, id); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete address")
		}
		removed = e
		return nil
	})
	if err != nil {
		return err
	}

	if s.metrics != nil {
		s.metrics.AddressesDeleted.Inc()
	}
	s.emit(ctx, events.Event{
		Type:      events.TypeAddressDeleted,
		EntryID:   id,
		OwnerID:   removed.OwnerID,
		NetworkID: removed.NetworkID,
		Name:      removed.Name,
	})
	return nil
}

func (s *Service) emit(ctx context.Context, ev events.Event) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Emit(ctx, ev); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "failed to publish audit event",
			"type", ev.Type,
			"adbkid", ev.EntryID,
			"error", err,
		)
	}
}
