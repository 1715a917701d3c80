package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"storagedrive/internal/domain"
	"storagedrive/internal/repository"
)

// FavoriteService ведет отметки избранного. Флаг Item.IsFavorite поднят,
// пока на элемент ссылается хотя бы одна отметка.
type FavoriteService struct {
	store    *repository.Store
	activity ActivityRecorder
	log      *zap.Logger
	now      func() time.Time
}

func NewFavoriteService(store *repository.Store, activity ActivityRecorder, log *zap.Logger) *FavoriteService {
	return &FavoriteService{
		store:    store,
		activity: activity,
		log:      log.Named("favorite_service"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *FavoriteService) AddFavorite(ctx context.Context, ownerID, itemID string) error {
	if err := requireOwner(ownerID); err != nil {
		return err
	}

	var ref domain.ActivityRef
	err := s.store.InTx(ctx, func(r *repository.Repositories) error {
		var err error
		ref, err = s.add(ctx, r, ownerID, itemID)
		return err
	})
	if err != nil {
		return err
	}

	s.activity.Record(ownerID, ref, domain.ActionFavorited)
	return nil
}

func (s *FavoriteService) RemoveFavorite(ctx context.Context, ownerID, itemID string) error {
	if err := requireOwner(ownerID); err != nil {
		return err
	}

	err := s.store.InTx(ctx, func(r *repository.Repositories) error {
		return s.remove(ctx, r, ownerID, itemID)
	})
	if err != nil {
		return err
	}

	s.activity.Record(ownerID, domain.ActivityRef{ItemID: &itemID}, domain.ActionUnfavorited)
	return nil
}

// ToggleFavorite переключает отметку и возвращает новое состояние
func (s *FavoriteService) ToggleFavorite(ctx context.Context, ownerID, itemID string) (bool, error) {
	if err := requireOwner(ownerID); err != nil {
		return false, err
	}

	var (
		favorited bool
		ref       = domain.ActivityRef{ItemID: &itemID}
	)
	err := s.store.InTx(ctx, func(r *repository.Repositories) error {
		exists, err := r.Favorites.Exists(ctx, ownerID, itemID)
		if err != nil {
			return err
		}

		if exists {
			return s.remove(ctx, r, ownerID, itemID)
		}

		favorited = true
		ref, err = s.add(ctx, r, ownerID, itemID)
		return err
	})
	if err != nil {
		return false, err
	}

	action := domain.ActionUnfavorited
	if favorited {
		action = domain.ActionFavorited
	}
	s.activity.Record(ownerID, ref, action)

	return favorited, nil
}

func (s *FavoriteService) add(ctx context.Context, r *repository.Repositories, ownerID, itemID string) (domain.ActivityRef, error) {
	item, err := r.Items.GetActive(ctx, itemID)
	if err != nil {
		return domain.ActivityRef{}, err
	}

	err = r.Favorites.Create(ctx, &domain.Favorite{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		ItemID:    itemID,
		CreatedAt: s.now(),
	})
	if err != nil {
		return domain.ActivityRef{}, err
	}

	if err := r.Items.SetFavorite(ctx, itemID, true); err != nil {
		return domain.ActivityRef{}, err
	}
	return domain.ItemRef(item.FolderID, item.ID), nil
}

func (s *FavoriteService) remove(ctx context.Context, r *repository.Repositories, ownerID, itemID string) error {
	removed, err := r.Favorites.Delete(ctx, ownerID, itemID)
	if err != nil {
		return err
	}
	if !removed {
		return fmt.Errorf("favorite for item %s: %w", itemID, domain.ErrNotFound)
	}

	// Флаг снимается, только когда не осталось ни одной отметки
	count, err := r.Favorites.CountByItem(ctx, itemID)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	return r.Items.SetFavorite(ctx, itemID, false)
}

func (s *FavoriteService) IsFavorited(ctx context.Context, ownerID, itemID string) (bool, error) {
	if err := requireOwner(ownerID); err != nil {
		return false, err
	}
	return s.store.Favorites.Exists(ctx, ownerID, itemID)
}

func (s *FavoriteService) ListFavorites(ctx context.Context, ownerID string, p domain.Pagination) (*domain.ItemPage, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	p = p.Normalize()

	items, total, err := s.store.Favorites.ListItems(ctx, ownerID, p)
	if err != nil {
		return nil, err
	}

	return &domain.ItemPage{
		Items: items,
		Total: total,
		Page:  p.Page,
		Limit: p.Limit,
	}, nil
}
