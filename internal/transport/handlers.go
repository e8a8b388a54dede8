// Package transport provides methods for processing requests from endpoints
package transport

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/shinnn23/watermark-tool/internal/model"
	"github.com/wb-go/wbf/ginext"
)

// multipart memory cap for batch uploads
const maxUploadMemory = 64 << 20

type BatchHandler struct {
	service BatchService
}

type BatchService interface {
	Create(ctx context.Context, data *model.BatchCreateData) (*model.Batch, error)
	Preview(ctx context.Context, data *model.PreviewData) (io.Reader, string, error)
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*model.Batch, error)
	LoadResult(ctx context.Context, id string) (io.ReadCloser, string, error)
	GetList(ctx context.Context, req *model.ListRequest) ([]model.Batch, error)
	Fonts() []string
}

func NewBatchHandler(svc BatchService) *BatchHandler {
	return &BatchHandler{
		service: svc,
	}
}

func (h BatchHandler) SimplePinger(ctx *ginext.Context) {
	ctx.JSON(200, map[string]string{"message": "pong"})
}

// Create accepts a multipart form with the watermark fields and any number
// of "images" files, and registers one batch for async processing.
func (h BatchHandler) Create(ctx *ginext.Context) {
	if err := ctx.Request.ParseMultipartForm(maxUploadMemory); err != nil {
		ctx.JSON(400, map[string]string{"error": "invalid multipart form"})
		return
	}

	spec, err := parseSpecForm(ctx)
	if err != nil {
		ctx.JSON(400, map[string]string{"error": err.Error()})
		return
	}

	headers := ctx.Request.MultipartForm.File["images"]
	files := make([]model.UploadedFile, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			ctx.JSON(400, map[string]string{"error": fmt.Sprintf("failed to read uploaded file %q", fh.Filename)})
			return
		}
		defer closeFileFlow(f)

		files = append(files, model.UploadedFile{
			File:        f,
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
		})
	}

	res, err := h.service.Create(ctx.Request.Context(), &model.BatchCreateData{Spec: spec, Files: files})
	if err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": err.Error()})
		return
	}

	ctx.JSON(201, res)
}

// Preview composites one uploaded image synchronously and streams the
// result back - backs the live preview of the web form.
func (h BatchHandler) Preview(ctx *ginext.Context) {
	spec, err := parseSpecForm(ctx)
	if err != nil {
		ctx.JSON(400, map[string]string{"error": err.Error()})
		return
	}

	imageFile, imageHeader, err := ctx.Request.FormFile("image")
	if err != nil {
		ctx.JSON(400, map[string]string{"error": "image is required"})
		return
	}
	defer closeFileFlow(imageFile)

	data := &model.PreviewData{
		Spec: spec,
		File: model.UploadedFile{
			File:        imageFile,
			Name:        imageHeader.Filename,
			ContentType: imageHeader.Header.Get("Content-Type"),
			Size:        imageHeader.Size,
		},
	}

	res, cType, err := h.service.Preview(ctx.Request.Context(), data)
	if err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": err.Error()})
		return
	}

	ctx.Writer.Header().Set("Content-Type", cType)
	ctx.Writer.WriteHeader(200)
	if n, err := io.Copy(ctx.Writer, res); err != nil {
		log.Printf("Failed to write preview response at byte %d: %v", n, err)
	}
}

func (h BatchHandler) GetFonts(ctx *ginext.Context) {
	ctx.JSON(200, map[string][]string{"fonts": h.service.Fonts()})
}

func (h BatchHandler) GetBatch(ctx *ginext.Context) {
	id := ctx.Param("id")

	res, err := h.service.Get(ctx.Request.Context(), id)
	if err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": err.Error()})
		return
	}

	ctx.JSON(200, res)
}

func (h BatchHandler) GetAllBatches(ctx *ginext.Context) {
	var req model.ListRequest

	if err := ctx.ShouldBindQuery(&req); err != nil {
		ctx.JSON(400, map[string]string{"error": "failed to parse query-params"})
		return
	}

	res, err := h.service.GetList(ctx.Request.Context(), &req)
	if err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": err.Error()})
		return
	}

	ctx.JSON(200, res)
}

func (h BatchHandler) LoadResult(ctx *ginext.Context) {
	id := ctx.Param("id")

	res, cType, err := h.service.LoadResult(ctx.Request.Context(), id)
	if err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": err.Error()})
		return
	}
	defer closeFileFlow(res)

	ctx.Writer.Header().Set("Content-Type", cType)
	ctx.Writer.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=watermarked_%s.zip", id))
	ctx.Writer.WriteHeader(200)
	if n, err := io.Copy(ctx.Writer, res); err != nil {
		log.Printf("Failed to write response at byte %d for batch id %q: %v", n, id, err)
	}
}

func (h BatchHandler) Delete(ctx *ginext.Context) {
	id := ctx.Param("id")
	if err := h.service.Delete(ctx.Request.Context(), id); err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": err.Error()})
		return
	}

	ctx.Status(204)
}

func closeFileFlow(res interface{ Close() error }) {
	if res == nil {
		return
	}
	if err := res.Close(); err != nil {
		log.Println("Handler failed to close fileflow:", err)
	}
}
