// Package worker contains methods for worker to init at start, and to process watermark batches
package worker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log"
	"strings"

	"github.com/disintegration/imaging"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/shinnn23/watermark-tool/internal/archive"
	"github.com/shinnn23/watermark-tool/internal/compositor"
	"github.com/shinnn23/watermark-tool/internal/fonts"
	"github.com/shinnn23/watermark-tool/internal/model"
	"github.com/shinnn23/watermark-tool/internal/service"
	wbfkafka "github.com/wb-go/wbf/kafka"
)

type BatchWorkerService interface {
	UpdateStatus(ctx context.Context, id string, newStat model.Status) error
	SaveResult(ctx context.Context, res *model.Batch) error
	Get(ctx context.Context, id string) (*model.Batch, error)
}

type Worker struct {
	storage      service.ImageStorage
	service      BatchWorkerService
	fonts        *fonts.Library
	queue        <-chan kafkago.Message
	consumer     *wbfkafka.Consumer
	resultPrefix string
}

func NewWorkerInstance(strg service.ImageStorage, svc BatchWorkerService, lib *fonts.Library, q <-chan kafkago.Message, cons *wbfkafka.Consumer, resPr string) *Worker {
	return &Worker{storage: strg, service: svc, fonts: lib, queue: q, consumer: cons, resultPrefix: resPr}
}

func (w *Worker) StartWorker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-w.queue:
			if !ok {
				log.Println("Queue channel closed, stopping worker...")
				return
			}
			id := string(msg.Key)
			if err := w.initProcessor(ctx, id); err != nil && !errors.Is(err, model.ErrBatchNotFound) {
				log.Printf("Batch %s failed: %v", id, err)
				continue
			}
			if err := w.consumer.Commit(ctx, msg); err != nil {
				log.Printf("Failed to commit queue-message: %v", err)
			}
		}
	}
}

func (w *Worker) initProcessor(ctx context.Context, id string) error {
	task, err := w.service.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("Worker failed to fetch batch info %q from DB: %w", id, err)
	}
	switch task.Status {
	case model.StatusDone:
		return nil
	case model.StatusInProgress:
		return fmt.Errorf("already in progress")
	}

	// the result may already exist from an interrupted previous run
	if w.resultPrefix != "" && strings.Contains(task.ResultKey, w.resultPrefix) {
		if err := w.service.UpdateStatus(ctx, id, model.StatusDone); err != nil {
			return fmt.Errorf("failed to update status of already-done batch in DB: %w", err)
		}
		return nil
	}

	if err := w.service.UpdateStatus(ctx, id, model.StatusInProgress); err != nil {
		return fmt.Errorf("failed to update status of batch %q to `in_progress` in DB: %w", id, err)
	}

	if pErr := w.processBatch(ctx, task); pErr != nil {
		if uErr := w.service.UpdateStatus(ctx, id, model.StatusFailed); uErr != nil {
			return fmt.Errorf("failed to set status of batch %q to `failed` in DB: %w \nAFTER\n error while processing batch: %w", id, uErr, pErr)
		}
		return fmt.Errorf("failed to process batch %q: %w", id, pErr)
	}

	return nil
}

// processBatch composites the watermark onto every image of the batch and
// packs the outputs into one ZIP. A single image's failure is recorded on
// its item and never aborts the siblings; the batch as a whole fails only
// when no item survived.
func (w *Worker) processBatch(ctx context.Context, task *model.Batch) error {
	fsrc, err := w.fonts.Source(task.Spec.FontName)
	if err != nil {
		return fmt.Errorf("worker failed to resolve batch font: %w", err)
	}
	spec := task.Spec.Compositor()
	if err := spec.Validate(); err != nil {
		return fmt.Errorf("worker refused batch spec: %w", err)
	}

	entries := make([]archive.Entry, 0, len(task.Items))
	for i := range task.Items {
		item := &task.Items[i]

		data, err := w.processItem(ctx, item, spec, fsrc)
		if err != nil {
			item.Status = model.StatusFailed
			item.Error = err.Error()
			log.Printf("Batch %s: item %q failed: %v", task.UID, item.Name, err)
			continue
		}

		item.Status = model.StatusDone
		entries = append(entries, data)
	}

	if len(entries) == 0 {
		// persist per-item errors before reporting the batch as failed
		task.Status = model.StatusFailed
		if err := w.service.SaveResult(ctx, task); err != nil {
			return fmt.Errorf("worker failed to save failed batch to DB: %w", err)
		}
		return errors.New("all items of the batch failed")
	}

	result, size, err := archive.Pack(entries)
	if err != nil {
		return fmt.Errorf("worker failed to pack result archive: %w", err)
	}

	resKey := w.resultPrefix + task.UID.String() + ".zip"
	if err := w.storage.Put(ctx, resKey, size, model.ZIP, result); err != nil {
		return fmt.Errorf("worker failed to put result archive to storage: %w", err)
	}

	task.Status = model.StatusDone
	task.ResultKey = resKey

	if err := w.service.SaveResult(ctx, task); err != nil {
		return fmt.Errorf("worker failed to save result to DB: %w", err)
	}
	return nil
}

func (w *Worker) processItem(ctx context.Context, item *model.BatchItem, spec compositor.Spec, fsrc compositor.FontSource) (archive.Entry, error) {
	src, _, err := w.storage.Get(ctx, item.SourceKey)
	if err != nil {
		return archive.Entry{}, fmt.Errorf("failed to fetch source from storage: %w", err)
	}
	defer closeFileFlow(src)

	img, format, err := decodeSource(src)
	if err != nil {
		return archive.Entry{}, fmt.Errorf("failed to decode source: %w", err)
	}

	marked, err := compositor.Composite(img, spec, fsrc)
	if err != nil {
		return archive.Entry{}, fmt.Errorf("failed to composite watermark: %w", err)
	}

	var buf bytes.Buffer
	switch format {
	case imaging.JPEG:
		err = imaging.Encode(&buf, marked, format, imaging.JPEGQuality(95))
	default:
		err = imaging.Encode(&buf, marked, format)
	}
	if err != nil {
		return archive.Entry{}, fmt.Errorf("failed to encode result: %w", err)
	}

	return archive.Entry{Name: archive.ResultName(item.Name, format), Data: buf.Bytes()}, nil
}

func decodeSource(r io.Reader) (image.Image, imaging.Format, error) {
	if r == nil {
		return nil, -1, errors.New("nil-reader provided")
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, -1, err
	}

	_, f, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, -1, err
	}

	format, err := imaging.FormatFromExtension(f)
	if err != nil {
		return nil, -1, err
	}

	switch format {
	case imaging.PNG, imaging.JPEG, imaging.GIF:
	default:
		return nil, -1, model.ErrUnsupportedFormat
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, -1, err
	}

	return img, format, nil
}

func closeFileFlow(res io.ReadCloser) {
	if res == nil {
		return
	}

	if err := res.Close(); err != nil {
		log.Println("Worker failed to close fileflow:", err)
	}
}
