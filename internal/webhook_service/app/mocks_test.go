package app_test

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/hookroom/webhook-gateway/internal/webhook_service/domain"
)

type MockOutgoingRepository struct {
	mock.Mock
}

func (m *MockOutgoingRepository) ListByRoom(ctx context.Context, roomID string) ([]*domain.OutgoingRegistration, error) {
	args := m.Called(ctx, roomID)
	if regs, ok := args.Get(0).([]*domain.OutgoingRegistration); ok {
		return regs, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockOutgoingRepository) ListByRoomAndUser(ctx context.Context, roomID, userID string) ([]*domain.OutgoingRegistration, error) {
	args := m.Called(ctx, roomID, userID)
	if regs, ok := args.Get(0).([]*domain.OutgoingRegistration); ok {
		return regs, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockOutgoingRepository) GetByID(ctx context.Context, id int64) (*domain.OutgoingRegistration, error) {
	args := m.Called(ctx, id)
	if reg, ok := args.Get(0).(*domain.OutgoingRegistration); ok {
		return reg, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockOutgoingRepository) Upsert(ctx context.Context, reg *domain.OutgoingRegistration) (*domain.OutgoingRegistration, error) {
	args := m.Called(ctx, reg)
	if out, ok := args.Get(0).(*domain.OutgoingRegistration); ok {
		return out, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockOutgoingRepository) Delete(ctx context.Context, ids []int64) error {
	args := m.Called(ctx, ids)
	return args.Error(0)
}

func (m *MockOutgoingRepository) SetEnabled(ctx context.Context, ids []int64, enabled bool) error {
	args := m.Called(ctx, ids, enabled)
	return args.Error(0)
}

func (m *MockOutgoingRepository) UpdateRoomID(ctx context.Context, oldRoomID, newRoomID string) (int64, error) {
	args := m.Called(ctx, oldRoomID, newRoomID)
	return args.Get(0).(int64), args.Error(1)
}

type MockIncomingRepository struct {
	mock.Mock
}

func (m *MockIncomingRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.IncomingRegistration, error) {
	args := m.Called(ctx, id)
	if reg, ok := args.Get(0).(*domain.IncomingRegistration); ok {
		return reg, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockIncomingRepository) ListByRoom(ctx context.Context, roomID string) ([]*domain.IncomingRegistration, error) {
	args := m.Called(ctx, roomID)
	if regs, ok := args.Get(0).([]*domain.IncomingRegistration); ok {
		return regs, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockIncomingRepository) Create(ctx context.Context, reg *domain.IncomingRegistration) (*domain.IncomingRegistration, error) {
	args := m.Called(ctx, reg)
	if out, ok := args.Get(0).(*domain.IncomingRegistration); ok {
		return out, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockIncomingRepository) Delete(ctx context.Context, id uuid.UUID, userID string) error {
	args := m.Called(ctx, id, userID)
	return args.Error(0)
}

func (m *MockIncomingRepository) TouchLastUsed(ctx context.Context, id uuid.UUID, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

func (m *MockIncomingRepository) UpdateRoomID(ctx context.Context, oldRoomID, newRoomID string) (int64, error) {
	args := m.Called(ctx, oldRoomID, newRoomID)
	return args.Get(0).(int64), args.Error(1)
}

type MockChatClient struct {
	mock.Mock
}

func (m *MockChatClient) SendMessage(ctx context.Context, roomID, plainText, htmlText string) error {
	args := m.Called(ctx, roomID, plainText, htmlText)
	return args.Error(0)
}
