// Package service provides business-logic for the app
package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/shinnn23/watermark-tool/internal/compositor"
	"github.com/shinnn23/watermark-tool/internal/fonts"
	"github.com/shinnn23/watermark-tool/internal/model"
	"github.com/shinnn23/watermark-tool/internal/mwlogger"
	"github.com/shinnn23/watermark-tool/internal/repository"
	"github.com/wb-go/wbf/retry"
)

type BatchService struct {
	repo         repository.BatchRepo
	publisher    TaskPublisher
	storage      ImageStorage
	fonts        *fonts.Library
	srcKeyPrefix string
}

func NewBatchService(repo repository.BatchRepo, pub TaskPublisher, strg ImageStorage, lib *fonts.Library) *BatchService {
	return &BatchService{
		repo:         repo,
		publisher:    pub,
		storage:      strg,
		fonts:        lib,
		srcKeyPrefix: "src/",
	}
}

// TaskPublisher - contract for the task-queue
type TaskPublisher interface {
	SendWithRetry(ctx context.Context, strategy retry.Strategy, key []byte, v []byte) error
}

// ImageStorage - contract for the object storage
type ImageStorage interface {
	Delete(ctx context.Context, key string) error
	Get(ctx context.Context, key string) (output io.ReadCloser, ctype string, err error)
	Put(ctx context.Context, key string, size int64, contentType string, r io.Reader) error
}

// Queue-publish retry strategy - candidates for config/env later
var retryStrategy = retry.Strategy{
	Attempts: 5,
	Delay:    3 * time.Second,
	Backoff:  1.5,
}

// Create validates the watermark spec and the uploaded images, puts every
// source into storage, records the batch and publishes its UID to the
// task-queue. Spec validation fails fast, before any upload happens.
func (c BatchService) Create(ctx context.Context, data *model.BatchCreateData) (*model.Batch, error) {
	logger := mwlogger.LoggerFromContext(ctx)
	newBatch := &model.Batch{}

	if err := c.validateNormalizeSpec(&data.Spec); err != nil {
		return nil, err
	}
	if err := validateFiles(data.Files); err != nil {
		return nil, err
	}
	newBatch.Spec = data.Spec

	newBatch.UID = uuid.New()

	// store every source under its own key
	newBatch.Items = make(model.BatchItems, 0, len(data.Files))
	for i, f := range data.Files {
		srcKey := fmt.Sprintf("%s%s/%d%s", c.srcKeyPrefix, newBatch.UID, i, model.GetImageFileExt[f.ContentType])

		if err := c.storage.Put(ctx, srcKey, f.Size, f.ContentType, f.File); err != nil {
			logger.Error().Err(err).Msg("Failed to save src-image in Storage")
			return nil, model.ErrCommon500
		}

		newBatch.Items = append(newBatch.Items, model.BatchItem{
			SourceKey:   srcKey,
			Name:        f.Name,
			ContentType: f.ContentType,
			Status:      model.StatusCreated,
		})
	}

	newBatch.Status = model.StatusCreated
	now := time.Now().UTC()
	newBatch.CreatedAt = &now

	if err := c.repo.Create(ctx, newBatch); err != nil {
		logger.Error().Err(err).Msg("Failed to create batch in DB")
		return nil, model.ErrCommon500
	}

	if err := c.publisher.SendWithRetry(ctx, retryStrategy, []byte(newBatch.UID.String()), nil); err != nil {
		logger.Error().Err(err).Msg(fmt.Sprintf("Failed to publish batch %q to task-queue", newBatch.UID))
		return nil, model.ErrCommon500
	}
	return newBatch, nil
}

// Preview composites the watermark onto a single uploaded image
// synchronously and returns it PNG-encoded - backs the live preview of the
// web form without touching storage or the queue.
func (c BatchService) Preview(ctx context.Context, data *model.PreviewData) (io.Reader, string, error) {
	logger := mwlogger.LoggerFromContext(ctx)

	if err := c.validateNormalizeSpec(&data.Spec); err != nil {
		return nil, "", err
	}
	if err := validateFiles([]model.UploadedFile{data.File}); err != nil {
		return nil, "", err
	}

	img, err := imaging.Decode(data.File.File)
	if err != nil {
		return nil, "", model.ErrEmptySource
	}

	fsrc, err := c.fonts.Source(data.Spec.FontName)
	if err != nil {
		return nil, "", model.ErrUnknownFont
	}

	out, err := compositor.Composite(img, data.Spec.Compositor(), fsrc)
	if err != nil {
		return nil, "", err
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, out, imaging.PNG); err != nil {
		logger.Error().Err(err).Msg("Failed to encode preview image")
		return nil, "", model.ErrCommon500
	}
	return &buf, model.PNG, nil
}

// Fonts lists the names available for the web form's font dropdown.
func (c BatchService) Fonts() []string {
	return c.fonts.Names()
}

func (c BatchService) GetList(ctx context.Context, req *model.ListRequest) ([]model.Batch, error) {
	logger := mwlogger.LoggerFromContext(ctx)
	validateQueryParams(req)

	res, err := c.repo.GetList(ctx, req)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to fetch batch list from DB")
		return nil, model.ErrCommon500
	}

	return res, nil
}

func (c BatchService) Get(ctx context.Context, id string) (*model.Batch, error) {
	logger := mwlogger.LoggerFromContext(ctx)
	if err := uuid.Validate(id); err != nil {
		return nil, model.ErrIncorrectID
	}

	res, err := c.repo.Get(ctx, id)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrBatchNotFound):
			return nil, model.ErrBatchNotFound
		default:
			logger.Error().Err(err).Msg(fmt.Sprintf("Failed to fetch batch %q from DB", id))
			return nil, model.ErrCommon500
		}
	}

	return res, nil
}

func (c BatchService) LoadResult(ctx context.Context, id string) (io.ReadCloser, string, error) {
	logger := mwlogger.LoggerFromContext(ctx)
	if err := uuid.Validate(id); err != nil {
		return nil, "", model.ErrIncorrectID
	}

	res, err := c.repo.Get(ctx, id)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrBatchNotFound):
			return nil, "", model.ErrBatchNotFound
		default:
			logger.Error().Err(err).Msg(fmt.Sprintf("Failed to fetch batch %q from DB", id))
			return nil, "", model.ErrCommon500
		}
	}
	if res.Status != model.StatusDone {
		return nil, "", model.ErrResultNotReady
	}

	data, cType, err := c.storage.Get(ctx, res.ResultKey)
	if err != nil {
		logger.Error().Err(err).Msg(fmt.Sprintf("Failed to fetch result-archive %q from Storage", id))
		return nil, "", model.ErrCommon500
	}
	return data, cType, nil
}

func (c BatchService) Delete(ctx context.Context, id string) error {
	logger := mwlogger.LoggerFromContext(ctx)
	if err := uuid.Validate(id); err != nil {
		return model.ErrIncorrectID
	}

	res, err := c.repo.Get(ctx, id)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows), errors.Is(err, model.ErrBatchNotFound):
			return model.ErrBatchNotFound // 404
		default:
			logger.Error().Err(err).Msg(fmt.Sprintf("Failed to fetch batch %q from DB", id))
			return model.ErrCommon500
		}
	}

	if err := c.repo.Delete(ctx, id); err != nil {
		logger.Error().Err(err).Msg("Failed to delete batch from DB")
		return model.ErrCommon500
	}

	// remove all sources and the result-archive if it exists
	for _, item := range res.Items {
		if err := c.storage.Delete(ctx, item.SourceKey); err != nil {
			logger.Error().Err(err).Msg("Failed to delete src-image from Storage")
			return model.ErrCommon500
		}
	}
	if res.Status == model.StatusDone {
		if err := c.storage.Delete(ctx, res.ResultKey); err != nil {
			logger.Error().Err(err).Msg("Failed to delete result-archive from Storage")
			return model.ErrCommon500
		}
	}

	return nil
}

func (c BatchService) UpdateStatus(ctx context.Context, id string, newStat model.Status) error {
	if err := uuid.Validate(id); err != nil {
		return model.ErrIncorrectID
	}

	logger := mwlogger.LoggerFromContext(ctx)

	if err := c.repo.UpdateStatus(ctx, id, newStat); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return model.ErrBatchNotFound // 404
		default:
			logger.Error().Err(err).Msg("Failed to update batch status in DB")
			return model.ErrCommon500 // 500
		}
	}

	return nil
}

func (c BatchService) SaveResult(ctx context.Context, input *model.Batch) error {
	logger := mwlogger.LoggerFromContext(ctx)
	t := time.Now().UTC()
	input.UpdatedAt = &t
	if err := c.repo.SaveResult(ctx, input); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return model.ErrBatchNotFound // 404
		default:
			logger.Error().Err(err).Msg("Failed to save batch result in DB")
			return model.ErrCommon500 // 500
		}
	}

	return nil
}

func (c BatchService) ReviveOrphans(ctx context.Context, limit int) {
	logger := mwlogger.LoggerFromContext(ctx)

	orphans, err := c.repo.FetchOrphans(ctx, limit)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load orphans from DB")
		return
	}

	for _, v := range orphans {
		if err := c.publisher.SendWithRetry(ctx, retryStrategy, []byte(v), nil); err != nil {
			logger.Error().Err(err).Msg("Failed to publish orphan to queue")
		}
	}
}
