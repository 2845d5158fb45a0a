package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/google/uuid"

	"github.com/hookroom/webhook-gateway/internal/webhook_service/domain"
	"github.com/hookroom/webhook-gateway/internal/webhook_service/repository"
	"github.com/hookroom/webhook-gateway/internal/webhook_service/template"
)

// LifecycleService implements registration management for both webhook
// kinds. Every operation is scoped to a (room, acting user) pair and only
// ever mutates registrations the acting user owns.
type LifecycleService struct {
	outgoingRepo repository.OutgoingRepository
	incomingRepo repository.IncomingRepository
	logger       *slog.Logger
}

// NewLifecycleService creates a LifecycleService.
func NewLifecycleService(
	outgoingRepo repository.OutgoingRepository,
	incomingRepo repository.IncomingRepository,
	logger *slog.Logger,
) *LifecycleService {
	return &LifecycleService{
		outgoingRepo: outgoingRepo,
		incomingRepo: incomingRepo,
		logger:       logger.With("service", "lifecycle"),
	}
}

// Register creates an outgoing registration, or re-enables the existing one
// when (room, user, url) is already registered. templateJSON, when present,
// must parse as a JSON object and replaces the registration's template.
func (s *LifecycleService) Register(ctx context.Context, roomID, userID, rawURL string, templateJSON *string) (*domain.OutgoingRegistration, error) {
	if err := validateWebhookURL(rawURL); err != nil {
		return nil, err
	}
	if templateJSON != nil {
		if _, err := template.Parse(*templateJSON); err != nil {
			return nil, err
		}
	}

	reg, err := s.outgoingRepo.Upsert(ctx, &domain.OutgoingRegistration{
		RoomID:     roomID,
		UserID:     userID,
		WebhookURL: rawURL,
		Enabled:    true,
		Template:   templateJSON,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to register webhook: %w", err)
	}
	s.logger.InfoContext(ctx, "Webhook registered",
		"registration_id", reg.ID, "room_id", roomID, "user_id", userID, "url", rawURL)
	return reg, nil
}

// Unregister permanently deletes the selected owned registrations and
// returns how many were removed.
func (s *LifecycleService) Unregister(ctx context.Context, roomID, userID string, sel domain.Selector) (int, error) {
	ids, err := s.resolveSelector(ctx, roomID, userID, sel)
	if err != nil {
		return 0, err
	}
	if err := s.outgoingRepo.Delete(ctx, ids); err != nil {
		return 0, fmt.Errorf("failed to delete registrations: %w", err)
	}
	s.logger.InfoContext(ctx, "Webhooks unregistered", "room_id", roomID, "user_id", userID, "count", len(ids))
	return len(ids), nil
}

// Enable re-enables the selected owned registrations.
func (s *LifecycleService) Enable(ctx context.Context, roomID, userID string, sel domain.Selector) (int, error) {
	return s.setEnabled(ctx, roomID, userID, sel, true)
}

// Disable disables the selected owned registrations without deleting them;
// their URL and template survive a later Enable unchanged.
func (s *LifecycleService) Disable(ctx context.Context, roomID, userID string, sel domain.Selector) (int, error) {
	return s.setEnabled(ctx, roomID, userID, sel, false)
}

func (s *LifecycleService) setEnabled(ctx context.Context, roomID, userID string, sel domain.Selector, enabled bool) (int, error) {
	ids, err := s.resolveSelector(ctx, roomID, userID, sel)
	if err != nil {
		return 0, err
	}
	if err := s.outgoingRepo.SetEnabled(ctx, ids, enabled); err != nil {
		return 0, fmt.Errorf("failed to update registrations: %w", err)
	}
	return len(ids), nil
}

// List returns every registration in the room, creation time ascending.
func (s *LifecycleService) List(ctx context.Context, roomID string) ([]*domain.OutgoingRegistration, error) {
	return s.outgoingRepo.ListByRoom(ctx, roomID)
}

// CreateIncoming creates an incoming registration and returns it together
// with the plaintext API key. The key is shown exactly once: only its hash
// is stored, so a lost key means delete and recreate.
func (s *LifecycleService) CreateIncoming(ctx context.Context, roomID, userID string) (*domain.IncomingRegistration, string, error) {
	key, err := GenerateAPIKey()
	if err != nil {
		return nil, "", err
	}

	reg, err := s.incomingRepo.Create(ctx, &domain.IncomingRegistration{
		ID:         uuid.New(),
		RoomID:     roomID,
		UserID:     userID,
		APIKeyHash: HashAPIKey(key),
		Enabled:    true,
	})
	if err != nil {
		return nil, "", fmt.Errorf("failed to create incoming webhook: %w", err)
	}
	s.logger.InfoContext(ctx, "Incoming webhook created",
		"webhook_id", reg.ID, "room_id", roomID, "user_id", userID)
	return reg, key, nil
}

// DeleteIncoming permanently deletes an owned incoming registration.
// A registration owned by someone else fails with domain.ErrAccessDenied.
func (s *LifecycleService) DeleteIncoming(ctx context.Context, id uuid.UUID, userID string) error {
	reg, err := s.incomingRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if reg.UserID != userID {
		return domain.ErrAccessDenied
	}
	if err := s.incomingRepo.Delete(ctx, id, userID); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Incoming webhook deleted", "webhook_id", id, "user_id", userID)
	return nil
}

// resolveSelector turns a selector into the concrete owned registration IDs
// before any mutation. ById on someone else's registration is
// domain.ErrAccessDenied; everything else that matches nothing is
// domain.ErrNotFound.
func (s *LifecycleService) resolveSelector(ctx context.Context, roomID, userID string, sel domain.Selector) ([]int64, error) {
	switch sel.Kind {
	case domain.SelectByID:
		reg, err := s.outgoingRepo.GetByID(ctx, sel.ID)
		if err != nil {
			return nil, err
		}
		if reg.RoomID != roomID {
			return nil, domain.ErrNotFound
		}
		if reg.UserID != userID {
			return nil, domain.ErrAccessDenied
		}
		return []int64{reg.ID}, nil

	case domain.SelectByURL:
		owned, err := s.outgoingRepo.ListByRoomAndUser(ctx, roomID, userID)
		if err != nil {
			return nil, err
		}
		var ids []int64
		for _, reg := range owned {
			if reg.WebhookURL == sel.URL {
				ids = append(ids, reg.ID)
			}
		}
		if len(ids) == 0 {
			return nil, domain.ErrNotFound
		}
		return ids, nil

	default: // SelectAll
		owned, err := s.outgoingRepo.ListByRoomAndUser(ctx, roomID, userID)
		if err != nil {
			return nil, err
		}
		if len(owned) == 0 {
			return nil, domain.ErrNotFound
		}
		ids := make([]int64, 0, len(owned))
		for _, reg := range owned {
			ids = append(ids, reg.ID)
		}
		return ids, nil
	}
}

func validateWebhookURL(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidURL, err)
	}
	if (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return fmt.Errorf("%w: %q", domain.ErrInvalidURL, rawURL)
	}
	return nil
}
