package service

import (
	"context"

	"github.com/danielnymberg/bokabuttle/internal/model"
	"github.com/danielnymberg/bokabuttle/internal/queue"
	"github.com/danielnymberg/bokabuttle/internal/repository"
)

// EventStore is the event persistence the services depend on.
// *repository.EventRepo satisfies it.
type EventStore interface {
	Create(ctx context.Context, name, startDate, endDate string) (uint64, error)
	GetByID(ctx context.Context, id uint64) (model.Event, error)
	CurrentOpen(ctx context.Context) (*model.Event, error)
	List(ctx context.Context) ([]model.Event, error)
	Update(ctx context.Context, id uint64, u repository.EventUpdate) error
	SetOpen(ctx context.Context, id uint64, open bool) error
	Rename(ctx context.Context, id uint64, name string) error
	Delete(ctx context.Context, id uint64) error
	Exists(ctx context.Context, id uint64) (bool, error)
}

// SessionStore is satisfied by *repository.SessionRepo.
type SessionStore interface {
	Create(ctx context.Context, s *model.Session) error
	CreateBatch(ctx context.Context, sessions []model.Session) (int, error)
	GetWithEventState(ctx context.Context, id uint64) (model.Session, bool, error)
	ListByEvent(ctx context.Context, eventID uint64) ([]model.Session, error)
}

// SlotStore is satisfied by *repository.SlotRepo.  ClaimIfEmpty must be a
// single atomic compare-and-set in the backing store.
type SlotStore interface {
	Get(ctx context.Context, key model.SlotKey) (model.SlotClaim, error)
	ClaimIfEmpty(ctx context.Context, key model.SlotKey, name string) (bool, error)
	Set(ctx context.Context, key model.SlotKey, name string) error
	ListClaimedByEvent(ctx context.Context, eventID uint64) ([]model.SlotClaim, error)
}

// AdminStore is satisfied by *repository.AdminRepo.
type AdminStore interface {
	Create(ctx context.Context, name, email, passwordHash string) (uint64, error)
	GetByEmail(ctx context.Context, email string) (model.Admin, error)
	GetByID(ctx context.Context, id uint64) (model.Admin, error)
	List(ctx context.Context) ([]model.Admin, error)
}

// EventPublisher receives slot events after a write has committed.
// *queue.Publisher satisfies it.
type EventPublisher interface {
	PublishSlotEvent(ctx context.Context, ev queue.SlotEvent) error
}
