package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/hookroom/webhook-gateway/internal/webhook_service/domain"
)

// OutgoingRepository persists outgoing webhook registrations. It is the only
// owner of that state: callers hold rows only for the duration of one
// dispatch or lifecycle operation and never cache them.
type OutgoingRepository interface {
	// ListByRoom returns every registration in the room (enabled and
	// disabled), ordered by creation time ascending.
	ListByRoom(ctx context.Context, roomID string) ([]*domain.OutgoingRegistration, error)
	// ListByRoomAndUser returns the acting user's registrations in the room,
	// ordered by creation time ascending.
	ListByRoomAndUser(ctx context.Context, roomID, userID string) ([]*domain.OutgoingRegistration, error)
	GetByID(ctx context.Context, id int64) (*domain.OutgoingRegistration, error)
	// Upsert inserts the registration, or — when (room, user, url) already
	// exists — re-enables the existing row and replaces its template, in a
	// single atomic statement.
	Upsert(ctx context.Context, reg *domain.OutgoingRegistration) (*domain.OutgoingRegistration, error)
	Delete(ctx context.Context, ids []int64) error
	SetEnabled(ctx context.Context, ids []int64, enabled bool) error
	// UpdateRoomID moves registrations to a replacement room after a room
	// upgrade; returns the number of rows moved.
	UpdateRoomID(ctx context.Context, oldRoomID, newRoomID string) (int64, error)
}

// IncomingRepository persists incoming webhook registrations.
type IncomingRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.IncomingRegistration, error)
	ListByRoom(ctx context.Context, roomID string) ([]*domain.IncomingRegistration, error)
	Create(ctx context.Context, reg *domain.IncomingRegistration) (*domain.IncomingRegistration, error)
	// Delete removes the registration owned by userID; domain.ErrNotFound if
	// no such owned row exists.
	Delete(ctx context.Context, id uuid.UUID, userID string) error
	// TouchLastUsed overwrites last_used_at. Idempotent; concurrent touches
	// of the same registration are expected.
	TouchLastUsed(ctx context.Context, id uuid.UUID, at time.Time) error
	UpdateRoomID(ctx context.Context, oldRoomID, newRoomID string) (int64, error)
}
