package service

import (
	"context"

	"storagedrive/internal/domain"
	"storagedrive/internal/repository"
)

type TrashService struct {
	trashRepo *repository.TrashRepository
}

func NewTrashService(trashRepo *repository.TrashRepository) *TrashService {
	return &TrashService{trashRepo: trashRepo}
}

// GetTrashItems получает список элементов в корзине
func (s *TrashService) GetTrashItems(ctx context.Context, ownerID string) ([]domain.TrashItem, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}

	return s.trashRepo.GetTrashItems(ctx, ownerID)
}
