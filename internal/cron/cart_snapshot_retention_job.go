package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/envasesysoluciones/cotizaciones-backend/pkg/logger"
)

const cartSnapshotRetentionDays = 60

type cartSnapshotRepo interface {
	DeleteStaleBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type CartSnapshotRetentionJobParams struct {
	Logger     *logger.Logger
	Repository cartSnapshotRepo
	MaxAgeDays int
}

// NewCartSnapshotRetentionJob drops persisted carts nobody touched within
// MaxAgeDays.
func NewCartSnapshotRetentionJob(params CartSnapshotRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	if params.Repository == nil {
		return nil, errors.New("cart snapshot repository required")
	}
	maxAge := params.MaxAgeDays
	if maxAge <= 0 {
		maxAge = cartSnapshotRetentionDays
	}
	return &cartSnapshotRetentionJob{
		logg:   params.Logger,
		repo:   params.Repository,
		maxAge: maxAge,
		now:    time.Now,
	}, nil
}

type cartSnapshotRetentionJob struct {
	logg   *logger.Logger
	repo   cartSnapshotRepo
	maxAge int
	now    func() time.Time
}

func (j *cartSnapshotRetentionJob) Name() string { return "cart-snapshot-retention" }

func (j *cartSnapshotRetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().AddDate(0, 0, -j.maxAge)
	deleted, err := j.repo.DeleteStaleBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("delete stale cart snapshots: %w", err)
	}
	if deleted > 0 {
		j.logg.Info(j.logg.WithFields(ctx, map[string]any{
			"cutoff":       cutoff,
			"rows_deleted": deleted,
		}), "cron.cart_snapshot_retention.complete")
	}
	return nil
}
