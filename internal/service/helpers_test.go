package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"storagedrive/internal/domain"
	"storagedrive/internal/repository"
	"storagedrive/internal/repository/repotest"
)

type recordedActivity struct {
	ownerID string
	ref     domain.ActivityRef
	action  domain.ActivityAction
}

type fakeRecorder struct {
	mu     sync.Mutex
	events []recordedActivity
}

func (f *fakeRecorder) Record(ownerID string, ref domain.ActivityRef, action domain.ActivityAction) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, recordedActivity{ownerID: ownerID, ref: ref, action: action})
}

func (f *fakeRecorder) actions() []domain.ActivityAction {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.ActivityAction, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.action)
	}
	return out
}

type fakeUploader struct {
	mu       sync.Mutex
	objects  map[string]*domain.FileUpload
	deleted  []string
	err      error
	onUpload func()
}

func newFakeUploader() *fakeUploader {
	return &fakeUploader{objects: make(map[string]*domain.FileUpload)}
}

func (f *fakeUploader) Upload(_ context.Context, key string, file *domain.FileUpload) (*domain.UploadResult, error) {
	if f.onUpload != nil {
		f.onUpload()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.objects[key] = file
	return &domain.UploadResult{
		URL:  "https://cdn.test/" + key,
		Key:  key,
		Size: int64(len(file.Data)),
	}, nil
}

func (f *fakeUploader) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	f.deleted = append(f.deleted, key)
	return nil
}

type fakeThumbnailer struct {
	err error
}

func (f fakeThumbnailer) Thumbnail(data []byte) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []byte("thumb"), nil
}

type testEnv struct {
	store     *repository.Store
	recorder  *fakeRecorder
	uploader  *fakeUploader
	folders   *FolderService
	items     *ItemService
	copies    *CopyService
	favorites *FavoriteService
	quota     *StorageQuotaService
}

func newTestEnv(t *testing.T, quotaBytes int64) *testEnv {
	t.Helper()

	store := repotest.NewStore(t, quotaBytes)
	rec := &fakeRecorder{}
	up := newFakeUploader()
	log := zap.NewNop()

	return &testEnv{
		store:     store,
		recorder:  rec,
		uploader:  up,
		folders:   NewFolderService(store, rec, log),
		items:     NewItemService(store, up, fakeThumbnailer{}, rec, log),
		copies:    NewCopyService(store, rec, log),
		favorites: NewFavoriteService(store, rec, log),
		quota:     NewStorageQuotaService(store, log),
	}
}

func (e *testEnv) folder(t *testing.T, ownerID, name string, parentID *string) *domain.Folder {
	t.Helper()
	f, err := e.folders.CreateFolder(context.Background(), ownerID, name, domain.FolderTypeGeneral, parentID)
	require.NoError(t, err)
	return f
}

func (e *testEnv) note(t *testing.T, ownerID, folderID, name, content string) *domain.Item {
	t.Helper()
	item, err := e.items.CreateItem(context.Background(), ownerID, domain.CreateItemInput{
		FolderID: folderID,
		Name:     name,
		Type:     domain.ItemTypeNote,
		Content:  &content,
	})
	require.NoError(t, err)
	return item
}

func (e *testEnv) usedBytes(t *testing.T, ownerID string) int64 {
	t.Helper()
	q, err := e.store.Quotas.GetQuota(context.Background(), ownerID)
	require.NoError(t, err)
	return q.UsedBytes
}

func (e *testEnv) reloadFolder(t *testing.T, ownerID, id string) *domain.Folder {
	t.Helper()
	f, err := e.store.Folders.GetByIDIncludingDeleted(context.Background(), ownerID, id)
	require.NoError(t, err)
	return f
}

// assertCountersMatch сверяет счетчики каждой живой папки с живыми элементами
func (e *testEnv) assertCountersMatch(t *testing.T, ownerID string) {
	t.Helper()
	ctx := context.Background()

	folders, _, err := e.store.Folders.List(ctx, ownerID, nil, domain.Pagination{Page: 1, Limit: domain.MaxPageLimit})
	require.NoError(t, err)

	var total int64
	for _, f := range folders {
		items, err := e.store.Items.ListInFolders(ctx, ownerID, []string{f.ID})
		require.NoError(t, err)

		var bytes int64
		for _, it := range items {
			bytes += it.FileSize
		}
		total += bytes

		require.Equal(t, int64(len(items)), f.TotalItems, fmt.Sprintf("total_items of %s", f.Name))
		require.Equal(t, bytes, f.StorageUsed, fmt.Sprintf("storage_used of %s", f.Name))
	}
	require.Equal(t, total, e.usedBytes(t, ownerID), "used bytes")
}

var errStorageDown = errors.New("storage is down")

func strPtr(s string) *string { return &s }
