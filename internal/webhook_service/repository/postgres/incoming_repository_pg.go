package postgres

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/hookroom/webhook-gateway/internal/webhook_service/domain"
	"github.com/hookroom/webhook-gateway/internal/webhook_service/repository"
)

const incomingColumns = "id, room_id, user_id, api_key_hash, enabled, created_at, last_used_at"

type pgIncomingRepository struct {
	db     PGXPool
	logger *slog.Logger
}

// NewPgIncomingRepository creates the PostgreSQL-backed incoming registration store.
func NewPgIncomingRepository(db PGXPool, logger *slog.Logger) repository.IncomingRepository {
	return &pgIncomingRepository{db: db, logger: logger.With("repository", "incoming_pg")}
}

func scanIncoming(row pgx.Row) (*domain.IncomingRegistration, error) {
	reg := &domain.IncomingRegistration{}
	err := row.Scan(&reg.ID, &reg.RoomID, &reg.UserID, &reg.APIKeyHash, &reg.Enabled, &reg.CreatedAt, &reg.LastUsedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return reg, nil
}

func (r *pgIncomingRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.IncomingRegistration, error) {
	query := `SELECT ` + incomingColumns + ` FROM incoming_webhooks WHERE id = $1`
	return scanIncoming(r.db.QueryRow(ctx, query, id))
}

func (r *pgIncomingRepository) ListByRoom(ctx context.Context, roomID string) ([]*domain.IncomingRegistration, error) {
	query := `
		SELECT ` + incomingColumns + `
		FROM incoming_webhooks
		WHERE room_id = $1
		ORDER BY created_at ASC, id ASC
	`
	rows, err := r.db.Query(ctx, query, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var regs []*domain.IncomingRegistration
	for rows.Next() {
		reg, err := scanIncoming(rows)
		if err != nil {
			return nil, err
		}
		regs = append(regs, reg)
	}
	return regs, rows.Err()
}

func (r *pgIncomingRepository) Create(ctx context.Context, reg *domain.IncomingRegistration) (*domain.IncomingRegistration, error) {
	if reg.ID == uuid.Nil {
		reg.ID = uuid.New()
	}
	if reg.CreatedAt.IsZero() {
		reg.CreatedAt = time.Now().UTC()
	}
	query := `
		INSERT INTO incoming_webhooks (id, room_id, user_id, api_key_hash, enabled, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + incomingColumns
	return scanIncoming(r.db.QueryRow(ctx, query, reg.ID, reg.RoomID, reg.UserID, reg.APIKeyHash, reg.Enabled, reg.CreatedAt))
}

func (r *pgIncomingRepository) Delete(ctx context.Context, id uuid.UUID, userID string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM incoming_webhooks WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *pgIncomingRepository) TouchLastUsed(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.db.Exec(ctx, `UPDATE incoming_webhooks SET last_used_at = $2 WHERE id = $1`, id, at)
	return err
}

func (r *pgIncomingRepository) UpdateRoomID(ctx context.Context, oldRoomID, newRoomID string) (int64, error) {
	tag, err := r.db.Exec(ctx, `UPDATE incoming_webhooks SET room_id = $2 WHERE room_id = $1`, oldRoomID, newRoomID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
