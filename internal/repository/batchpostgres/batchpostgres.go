package batchpostgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/shinnn23/watermark-tool/internal/model"
	"github.com/wb-go/wbf/dbpg"
)

type PostgresRepo struct {
	DB *dbpg.DB
}

func (p PostgresRepo) Create(ctx context.Context, n *model.Batch) error {
	query := `INSERT INTO batches (batch_uid, spec, items, result_key, status, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)`
	return p.DB.QueryRowContext(ctx, query, n.UID, n.Spec, n.Items, n.ResultKey, n.Status, n.CreatedAt, n.CreatedAt).Err()
}

func (p PostgresRepo) Get(ctx context.Context, id string) (*model.Batch, error) {
	query := `SELECT batch_uid, spec, items, result_key, status, created_at, updated_at
	FROM batches
	WHERE batch_uid = $1`
	var batch model.Batch

	err := p.DB.QueryRowContext(ctx, query, id).Scan(&batch.UID,
		&batch.Spec,
		&batch.Items,
		&batch.ResultKey,
		&batch.Status,
		&batch.CreatedAt,
		&batch.UpdatedAt)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, model.ErrBatchNotFound
		default:
			return nil, err // 500
		}
	}
	return &batch, nil
}

func (p PostgresRepo) GetList(ctx context.Context, req *model.ListRequest) ([]model.Batch, error) {
	query := fmt.Sprintf(`SELECT batch_uid, spec, items, status, created_at, updated_at
	FROM batches
	ORDER BY %s %s
	LIMIT $1
	OFFSET $2`, req.Sort, req.Order)

	offset := (req.Page - 1) * req.Limit

	rows, err := p.DB.QueryContext(ctx, query, req.Limit, offset)
	if err != nil {
		return nil, err
	}

	defer func() {
		if err := rows.Close(); err != nil {
			log.Printf("Error while closing *sql.Rows after scanning: %v", err)
		}
	}()

	batches := make([]model.Batch, 0, req.Limit)
	for rows.Next() {
		var batch model.Batch
		if err := rows.Scan(&batch.UID,
			&batch.Spec,
			&batch.Items,
			&batch.Status,
			&batch.CreatedAt,
			&batch.UpdatedAt); err != nil {
			return nil, err
		}
		batches = append(batches, batch)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return batches, nil
}

func (p PostgresRepo) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM batches
	WHERE batch_uid = $1`

	row := p.DB.QueryRowContext(ctx, query, id)
	if row.Err() != nil {
		switch {
		case errors.Is(row.Err(), sql.ErrNoRows):
			return model.ErrBatchNotFound // 404
		default:
			return row.Err() // 500
		}
	}
	return nil
}

func (p PostgresRepo) UpdateStatus(ctx context.Context, id string, newStat model.Status) error {
	query := `UPDATE batches SET status = $1, updated_at = now() WHERE batch_uid = $2`
	row := p.DB.QueryRowContext(ctx, query, newStat, id)

	if row.Err() != nil {
		switch {
		case errors.Is(row.Err(), sql.ErrNoRows):
			return model.ErrBatchNotFound // 404
		default:
			return row.Err() // 500
		}
	}
	return nil
}

func (p PostgresRepo) SaveResult(ctx context.Context, input *model.Batch) error {
	query := `UPDATE batches SET status = $1, updated_at = $2, result_key = $3, items = $4 WHERE batch_uid = $5`
	row := p.DB.QueryRowContext(ctx, query, input.Status, input.UpdatedAt, input.ResultKey, input.Items, input.UID)

	if row.Err() != nil {
		switch {
		case errors.Is(row.Err(), sql.ErrNoRows):
			return model.ErrBatchNotFound // 404
		default:
			return row.Err() // 500
		}
	}

	return nil
}

func (p PostgresRepo) FetchOrphans(ctx context.Context, limit int) ([]string, error) {
	query := `SELECT batch_uid
	FROM batches
	WHERE status IN ($1, $2)
	AND updated_at < now() - interval '10 minutes'
	LIMIT $3`

	rows, err := p.DB.QueryContext(ctx, query, model.StatusCreated, model.StatusInProgress, limit)
	if err != nil {
		return nil, err
	}

	defer func() {
		if err := rows.Close(); err != nil {
			log.Printf("Error while closing *sql.Rows after scanning: %v", err)
		}
	}()

	orphans := make([]string, 0, limit)
	for rows.Next() {
		uid := ""
		if err := rows.Scan(&uid); err != nil {
			return nil, err
		}
		orphans = append(orphans, uid)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return orphans, nil
}
