package service

import (
	"context"
	"fmt"

	"github.com/framehq/deskbook/internal/domain"
	"github.com/framehq/deskbook/internal/repository"
)

type WorkspaceService interface {
	ListDesks(ctx context.Context, zoneID string) ([]domain.Desk, error)
	ListZones(ctx context.Context) ([]domain.Zone, error)
}

type workspaceService struct {
	workspaceRepo repository.WorkspaceRepository
}

func NewWorkspaceService(workspaceRepo repository.WorkspaceRepository) WorkspaceService {
	return &workspaceService{workspaceRepo: workspaceRepo}
}

func (s *workspaceService) ListDesks(ctx context.Context, zoneID string) ([]domain.Desk, error) {
	desks, err := s.workspaceRepo.ListDesks(ctx, zoneID)
	if err != nil {
		return nil, fmt.Errorf("failed to list desks: %w", err)
	}
	return desks, nil
}

func (s *workspaceService) ListZones(ctx context.Context) ([]domain.Zone, error) {
	zones, err := s.workspaceRepo.ListZones(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list zones: %w", err)
	}
	return zones, nil
}
