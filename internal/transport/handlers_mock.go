package transport

import (
	"context"
	"io"

	"github.com/gin-gonic/gin"
	"github.com/shinnn23/watermark-tool/internal/model"
)

type mockBatchService struct {
	createFn     func(ctx context.Context, d *model.BatchCreateData) (*model.Batch, error)
	previewFn    func(ctx context.Context, d *model.PreviewData) (io.Reader, string, error)
	deleteFn     func(ctx context.Context, id string) error
	getFn        func(ctx context.Context, id string) (*model.Batch, error)
	loadResultFn func(ctx context.Context, id string) (io.ReadCloser, string, error)
	getListFn    func(ctx context.Context, req *model.ListRequest) ([]model.Batch, error)
	fontsFn      func() []string
}

func (m *mockBatchService) Create(ctx context.Context, d *model.BatchCreateData) (*model.Batch, error) {
	return m.createFn(ctx, d)
}

func (m *mockBatchService) Preview(ctx context.Context, d *model.PreviewData) (io.Reader, string, error) {
	return m.previewFn(ctx, d)
}

func (m *mockBatchService) Delete(ctx context.Context, id string) error {
	return m.deleteFn(ctx, id)
}

func (m *mockBatchService) Get(ctx context.Context, id string) (*model.Batch, error) {
	return m.getFn(ctx, id)
}

func (m *mockBatchService) LoadResult(ctx context.Context, id string) (io.ReadCloser, string, error) {
	return m.loadResultFn(ctx, id)
}

func (m *mockBatchService) GetList(ctx context.Context, req *model.ListRequest) ([]model.Batch, error) {
	return m.getListFn(ctx, req)
}

func (m *mockBatchService) Fonts() []string {
	return m.fontsFn()
}

func init() {
	gin.SetMode(gin.TestMode)
}
