package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"storagedrive/internal/domain"
	"storagedrive/internal/metrics"
	"storagedrive/internal/repository"
)

type StorageQuotaService struct {
	store *repository.Store
	log   *zap.Logger
}

func NewStorageQuotaService(store *repository.Store, log *zap.Logger) *StorageQuotaService {
	return &StorageQuotaService{
		store: store,
		log:   log.Named("quota_service"),
	}
}

func (s *StorageQuotaService) GetQuotaInfo(ctx context.Context, ownerID string) (*domain.QuotaInfo, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}

	quota, err := s.store.Quotas.GetQuota(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get quota: %w", err)
	}

	availableSpace := quota.TotalBytesLimit - quota.UsedBytes
	if availableSpace < 0 {
		availableSpace = 0
	}

	var usagePercent float64
	if quota.TotalBytesLimit > 0 {
		usagePercent = float64(quota.UsedBytes) / float64(quota.TotalBytesLimit) * 100
	}

	return &domain.QuotaInfo{
		TotalSpace:     quota.TotalBytesLimit,
		UsedSpace:      quota.UsedBytes,
		AvailableSpace: availableSpace,
		UsagePercent:   usagePercent,
	}, nil
}

func (s *StorageQuotaService) UpdateQuotaLimit(ctx context.Context, ownerID string, newLimit int64) error {
	if err := requireOwner(ownerID); err != nil {
		return err
	}
	if newLimit < 0 {
		return fmt.Errorf("%w: new quota limit cannot be negative", domain.ErrValidation)
	}

	if err := s.store.Quotas.UpdateQuotaLimit(ctx, ownerID, newLimit); err != nil {
		return err
	}

	s.log.Info("quota limit updated", zap.String("owner_id", ownerID), zap.Int64("limit", newLimit))
	return nil
}

// Reconcile пересчитывает счетчики всех папок и занятое место владельца
// по живым элементам
func (s *StorageQuotaService) Reconcile(ctx context.Context, ownerID string) (*domain.ReconcileReport, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}

	report := &domain.ReconcileReport{OwnerID: ownerID}
	err := s.store.InTx(ctx, func(r *repository.Repositories) error {
		updated, err := r.Folders.RecalculateCounters(ctx, ownerID, nil)
		if err != nil {
			return err
		}
		report.FoldersUpdated = updated

		report.UsedBytesBefore, report.UsedBytesAfter, err = r.Quotas.CalculateAndUpdateUsedSpace(ctx, ownerID)
		return err
	})
	if err != nil {
		metrics.ReconcileRuns.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to reconcile storage: %w", err)
	}

	metrics.ReconcileRuns.WithLabelValues("ok").Inc()
	if report.UsedBytesBefore != report.UsedBytesAfter {
		s.log.Warn("used space drift corrected",
			zap.String("owner_id", ownerID),
			zap.Int64("before", report.UsedBytesBefore),
			zap.Int64("after", report.UsedBytesAfter))
	}

	return report, nil
}

// ReconcileAll проходит по всем владельцам. Ошибка одного владельца
// не останавливает остальных.
func (s *StorageQuotaService) ReconcileAll(ctx context.Context) ([]domain.ReconcileReport, error) {
	owners, err := s.store.Quotas.ListOwners(ctx)
	if err != nil {
		return nil, err
	}

	reports := make([]domain.ReconcileReport, 0, len(owners))
	var errs []error
	for _, ownerID := range owners {
		if err := ctx.Err(); err != nil {
			return reports, err
		}

		report, err := s.Reconcile(ctx, ownerID)
		if err != nil {
			s.log.Error("reconcile failed", zap.String("owner_id", ownerID), zap.Error(err))
			errs = append(errs, err)
			continue
		}
		reports = append(reports, *report)
	}

	return reports, errors.Join(errs...)
}
