package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/atelierhq/atelier/pkg/models"
	"github.com/atelierhq/atelier/pkg/protocol"
)

// MockGenerationService is a mock implementation of the
// protocol.GenerationService interface.
type MockGenerationService struct {
	mock.Mock
}

func (m *MockGenerationService) SubmitJob(ctx context.Context, nodeType models.NodeType, req *protocol.GenerationRequest) (*protocol.SubmitResult, error) {
	args := m.Called(ctx, nodeType, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*protocol.SubmitResult), args.Error(1)
}

func (m *MockGenerationService) GetJobStatus(ctx context.Context, taskID string) (*protocol.JobStatus, error) {
	args := m.Called(ctx, taskID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*protocol.JobStatus), args.Error(1)
}

// MockThumbnailer is a mock implementation of the protocol.Thumbnailer
// interface.
type MockThumbnailer struct {
	mock.Mock
}

func (m *MockThumbnailer) Render(ctx context.Context, workflow *models.Workflow) (string, error) {
	args := m.Called(ctx, workflow)

	return args.String(0), args.Error(1)
}
