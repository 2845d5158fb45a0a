package postgres

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/hookroom/webhook-gateway/internal/webhook_service/domain"
	"github.com/hookroom/webhook-gateway/internal/webhook_service/repository"
)

// PGXPool is the subset of pgxpool.Pool the repositories use; narrowed so
// tests can substitute a pgxmock pool.
type PGXPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const outgoingColumns = "id, room_id, user_id, webhook_url, enabled, template, created_at"

type pgOutgoingRepository struct {
	db     PGXPool
	logger *slog.Logger
}

// NewPgOutgoingRepository creates the PostgreSQL-backed outgoing registration store.
func NewPgOutgoingRepository(db PGXPool, logger *slog.Logger) repository.OutgoingRepository {
	return &pgOutgoingRepository{db: db, logger: logger.With("repository", "outgoing_pg")}
}

func scanOutgoing(row pgx.Row) (*domain.OutgoingRegistration, error) {
	reg := &domain.OutgoingRegistration{}
	err := row.Scan(&reg.ID, &reg.RoomID, &reg.UserID, &reg.WebhookURL, &reg.Enabled, &reg.Template, &reg.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return reg, nil
}

func (r *pgOutgoingRepository) ListByRoom(ctx context.Context, roomID string) ([]*domain.OutgoingRegistration, error) {
	query := `
		SELECT ` + outgoingColumns + `
		FROM webhook_registrations
		WHERE room_id = $1
		ORDER BY created_at ASC, id ASC
	`
	rows, err := r.db.Query(ctx, query, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectOutgoing(rows)
}

func (r *pgOutgoingRepository) ListByRoomAndUser(ctx context.Context, roomID, userID string) ([]*domain.OutgoingRegistration, error) {
	query := `
		SELECT ` + outgoingColumns + `
		FROM webhook_registrations
		WHERE room_id = $1 AND user_id = $2
		ORDER BY created_at ASC, id ASC
	`
	rows, err := r.db.Query(ctx, query, roomID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectOutgoing(rows)
}

func collectOutgoing(rows pgx.Rows) ([]*domain.OutgoingRegistration, error) {
	var regs []*domain.OutgoingRegistration
	for rows.Next() {
		reg, err := scanOutgoing(rows)
		if err != nil {
			return nil, err
		}
		regs = append(regs, reg)
	}
	return regs, rows.Err()
}

func (r *pgOutgoingRepository) GetByID(ctx context.Context, id int64) (*domain.OutgoingRegistration, error) {
	query := `SELECT ` + outgoingColumns + ` FROM webhook_registrations WHERE id = $1`
	return scanOutgoing(r.db.QueryRow(ctx, query, id))
}

func (r *pgOutgoingRepository) Upsert(ctx context.Context, reg *domain.OutgoingRegistration) (*domain.OutgoingRegistration, error) {
	if reg.CreatedAt.IsZero() {
		reg.CreatedAt = time.Now().UTC()
	}
	// Single-statement upsert: a concurrent register/disable race on the same
	// (room, user, url) resolves at the unique index instead of duplicating.
	query := `
		INSERT INTO webhook_registrations (room_id, user_id, webhook_url, enabled, template, created_at)
		VALUES ($1, $2, $3, true, $4, $5)
		ON CONFLICT (room_id, user_id, webhook_url)
		DO UPDATE SET enabled = true, template = EXCLUDED.template
		RETURNING ` + outgoingColumns
	return scanOutgoing(r.db.QueryRow(ctx, query, reg.RoomID, reg.UserID, reg.WebhookURL, reg.Template, reg.CreatedAt))
}

func (r *pgOutgoingRepository) Delete(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.db.Exec(ctx, `DELETE FROM webhook_registrations WHERE id = ANY($1)`, ids)
	return err
}

func (r *pgOutgoingRepository) SetEnabled(ctx context.Context, ids []int64, enabled bool) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.db.Exec(ctx, `UPDATE webhook_registrations SET enabled = $2 WHERE id = ANY($1)`, ids, enabled)
	return err
}

func (r *pgOutgoingRepository) UpdateRoomID(ctx context.Context, oldRoomID, newRoomID string) (int64, error) {
	tag, err := r.db.Exec(ctx, `UPDATE webhook_registrations SET room_id = $2 WHERE room_id = $1`, oldRoomID, newRoomID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
