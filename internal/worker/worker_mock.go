package worker

import (
	"context"
	"io"

	"github.com/shinnn23/watermark-tool/internal/model"
)

// MOCK SERVICE

type mockWorkerService struct {
	updateFn     func(ctx context.Context, id string, st model.Status) error
	saveResultFn func(ctx context.Context, b *model.Batch) error
	getFn        func(ctx context.Context, id string) (*model.Batch, error)
}

func (m *mockWorkerService) UpdateStatus(ctx context.Context, id string, st model.Status) error {
	return m.updateFn(ctx, id, st)
}

func (m *mockWorkerService) SaveResult(ctx context.Context, b *model.Batch) error {
	return m.saveResultFn(ctx, b)
}

func (m *mockWorkerService) Get(ctx context.Context, id string) (*model.Batch, error) {
	return m.getFn(ctx, id)
}

// MOCK STORAGE

type mockStorage struct {
	putFn    func(ctx context.Context, key string, size int64, ct string, r io.Reader) error
	getFn    func(ctx context.Context, key string) (io.ReadCloser, string, error)
	deleteFn func(ctx context.Context, key string) error
}

func (m *mockStorage) Put(ctx context.Context, key string, size int64, ct string, r io.Reader) error {
	return m.putFn(ctx, key, size, ct, r)
}

func (m *mockStorage) Get(ctx context.Context, key string) (io.ReadCloser, string, error) {
	return m.getFn(ctx, key)
}

func (m *mockStorage) Delete(ctx context.Context, key string) error {
	return m.deleteFn(ctx, key)
}
