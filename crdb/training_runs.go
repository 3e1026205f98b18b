package crdb

import (
	"context"
	"fmt"
	"time"

	"github.com/danthegoodman1/credittree/artifact"
	"github.com/danthegoodman1/credittree/tree"
	"github.com/danthegoodman1/credittree/utils"
	"github.com/jackc/pgtype"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

const defaultListLimit = 50

type (
	// TrainingRun is one model of one training run.
	TrainingRun struct {
		Version   string
		Criterion tree.Criterion
		Target    string
		Features  []string
		Metrics   artifact.Metrics
		Depth     int
		Leaves    int
		CreatedAt time.Time
	}

	History struct {
		pool *pgxpool.Pool
	}
)

func NewHistory(pool *pgxpool.Pool) *History {
	return &History{pool: pool}
}

// RunsFromBundle flattens a trained bundle into one row per model.
func RunsFromBundle(b *artifact.Bundle) []TrainingRun {
	m := b.Manifest
	runs := make([]TrainingRun, 0, len(m.Criteria))
	for _, c := range m.Criteria {
		clf := b.Models[c]
		if clf == nil {
			continue
		}
		runs = append(runs, TrainingRun{
			Version:   m.Version,
			Criterion: c,
			Target:    m.Target,
			Features:  m.Features,
			Metrics:   m.Metrics[c],
			Depth:     clf.Depth(),
			Leaves:    clf.Leaves(),
			CreatedAt: m.CreatedAt,
		})
	}
	return runs
}

// InsertTrainingRuns records every run in one transaction. Re-inserting a
// version is a no-op.
func (h *History) InsertTrainingRuns(ctx context.Context, runs []TrainingRun) error {
	err := utils.ReliableExecInTx(ctx, h.pool, StandardContextTimeout, func(ctx context.Context, tx pgx.Tx) error {
		for _, r := range runs {
			_, err := tx.Exec(ctx, `
				INSERT INTO training_runs (version, criterion, target, features, accuracy, precision, recall, f1, test_rows, depth, leaves, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
				ON CONFLICT (version, criterion) DO NOTHING
			`, r.Version, string(r.Criterion), r.Target, r.Features, r.Metrics.Accuracy, r.Metrics.Precision, r.Metrics.Recall, r.Metrics.F1, r.Metrics.TestRows, r.Depth, r.Leaves, r.CreatedAt)
			if err != nil {
				return fmt.Errorf("error inserting run %s/%s: %w", r.Version, r.Criterion, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("error in ReliableExecInTx: %w", err)
	}
	return nil
}

// ListTrainingRuns returns the newest runs first.
func (h *History) ListTrainingRuns(ctx context.Context, limit int) ([]TrainingRun, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	var runs []TrainingRun
	err := utils.ReliableExec(ctx, h.pool, StandardContextTimeout, func(ctx context.Context, conn *pgxpool.Conn) error {
		runs = runs[:0]
		rows, err := conn.Query(ctx, `
			SELECT version, criterion, target, features, accuracy, precision, recall, f1, test_rows, depth, leaves, created_at
			FROM training_runs
			ORDER BY created_at DESC, version DESC, criterion
			LIMIT $1
		`, limit)
		if err != nil {
			return fmt.Errorf("error in conn.Query: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var (
				r         TrainingRun
				criterion string
				features  pgtype.TextArray
			)
			err = rows.Scan(&r.Version, &criterion, &r.Target, &features, &r.Metrics.Accuracy, &r.Metrics.Precision, &r.Metrics.Recall, &r.Metrics.F1, &r.Metrics.TestRows, &r.Depth, &r.Leaves, &r.CreatedAt)
			if err != nil {
				return fmt.Errorf("error in rows.Scan: %w", err)
			}
			if err = features.AssignTo(&r.Features); err != nil {
				return fmt.Errorf("error in features.AssignTo: %w", err)
			}
			r.Criterion = tree.Criterion(criterion)
			runs = append(runs, r)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("error in ReliableExec: %w", err)
	}
	return runs, nil
}
