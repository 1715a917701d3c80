package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"storagedrive/internal/domain"
	"storagedrive/internal/metrics"
	"storagedrive/internal/repository"
)

const (
	DefaultActivityBuffer = 256
	activityWriteTimeout  = 5 * time.Second
)

// ActivityService пишет журнал действий в фоне и отдает его для чтения.
// Запись не влияет на результат основной операции: при переполнении буфера
// событие отбрасывается, ошибка записи только логируется.
type ActivityService struct {
	repo *repository.ActivityRepository
	log  *zap.Logger
	now  func() time.Time

	mu     sync.RWMutex
	closed bool
	events chan domain.Activity
	done   chan struct{}
}

func NewActivityService(repo *repository.ActivityRepository, buffer int, log *zap.Logger) *ActivityService {
	if buffer <= 0 {
		buffer = DefaultActivityBuffer
	}

	s := &ActivityService{
		repo:   repo,
		log:    log.Named("activity_service"),
		now:    func() time.Time { return time.Now().UTC() },
		events: make(chan domain.Activity, buffer),
		done:   make(chan struct{}),
	}
	go s.run()

	return s
}

// Record ставит событие в очередь и сразу возвращается
func (s *ActivityService) Record(ownerID string, ref domain.ActivityRef, action domain.ActivityAction) {
	a := domain.Activity{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		FolderID:  ref.FolderID,
		ItemID:    ref.ItemID,
		Action:    action,
		CreatedAt: s.now(),
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		s.log.Warn("activity recorder is closed, event dropped",
			zap.String("owner_id", ownerID),
			zap.String("action", string(action)))
		metrics.ActivitiesDropped.Inc()
		return
	}

	select {
	case s.events <- a:
	default:
		s.log.Warn("activity buffer is full, event dropped",
			zap.String("owner_id", ownerID),
			zap.String("action", string(action)))
		metrics.ActivitiesDropped.Inc()
	}
}

func (s *ActivityService) run() {
	defer close(s.done)

	for a := range s.events {
		ctx, cancel := context.WithTimeout(context.Background(), activityWriteTimeout)
		if err := s.repo.Create(ctx, &a); err != nil {
			s.log.Error("failed to record activity",
				zap.String("owner_id", a.OwnerID),
				zap.String("action", string(a.Action)),
				zap.Error(err))
			metrics.ActivitiesFailed.Inc()
		}
		cancel()
	}
}

// Close дописывает накопленные события и останавливает обработчик
func (s *ActivityService) Close() {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.events)
	}
	s.mu.Unlock()

	<-s.done
}

// ListByDate возвращает события одного календарного дня по UTC, новые первыми
func (s *ActivityService) ListByDate(ctx context.Context, ownerID string, date time.Time) ([]domain.Activity, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}

	date = date.UTC()
	from := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	return s.repo.ListBetween(ctx, ownerID, from, from.AddDate(0, 0, 1))
}

func (s *ActivityService) ListActivities(ctx context.Context, ownerID string, p domain.Pagination) (*domain.ActivityPage, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	p = p.Normalize()

	activities, total, err := s.repo.List(ctx, ownerID, p)
	if err != nil {
		return nil, err
	}

	return &domain.ActivityPage{
		Activities: activities,
		Total:      total,
		Page:       p.Page,
		Limit:      p.Limit,
	}, nil
}
