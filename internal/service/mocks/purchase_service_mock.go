package mocks

import (
	"context"

	"eventstage/internal/model"

	"github.com/stretchr/testify/mock"
)

type PurchaseServiceMock struct {
	mock.Mock
}

func NewPurchaseServiceMock() *PurchaseServiceMock {
	return &PurchaseServiceMock{}
}

func (m *PurchaseServiceMock) Purchase(ctx context.Context, req model.PurchaseRequest) (*model.PurchaseConfirmation, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PurchaseConfirmation), args.Error(1)
}

func (m *PurchaseServiceMock) GetPasses(ctx context.Context, buyerID string) ([]*model.Pass, error) {
	args := m.Called(ctx, buyerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Pass), args.Error(1)
}

func (m *PurchaseServiceMock) GetPurchase(ctx context.Context, purchaseID, requesterID string) (*model.Pass, error) {
	args := m.Called(ctx, purchaseID, requesterID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Pass), args.Error(1)
}

func (m *PurchaseServiceMock) ReconcilePasses(ctx context.Context, buyerID string) (int, error) {
	args := m.Called(ctx, buyerID)
	return args.Int(0), args.Error(1)
}

func (m *PurchaseServiceMock) VerifyToken(ctx context.Context, token, requesterID string) (*model.Pass, error) {
	args := m.Called(ctx, token, requesterID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Pass), args.Error(1)
}
