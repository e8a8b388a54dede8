package main

import (
	"context"
	"io"

	"github.com/shinnn23/watermark-tool/internal/model"
)

type BatchAPIService interface {
	Create(context.Context, *model.BatchCreateData) (*model.Batch, error)
	Preview(ctx context.Context, data *model.PreviewData) (io.Reader, string, error)
	Get(ctx context.Context, id string) (*model.Batch, error)
	LoadResult(ctx context.Context, id string) (io.ReadCloser, string, error)
	GetList(ctx context.Context, req *model.ListRequest) ([]model.Batch, error)
	Delete(ctx context.Context, id string) error
	Fonts() []string
	ReviveOrphans(ctx context.Context, limit int)
}
