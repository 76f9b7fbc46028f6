package cron

import (
	"context"
	"errors"

	"github.com/envasesysoluciones/cotizaciones-backend/pkg/logger"
)

type contentRefresher interface {
	Refresh(ctx context.Context) error
}

// NewContentWarmupJob reloads the catalog into the content cache so
// storefront reads rarely reach the CMS.
func NewContentWarmupJob(logg *logger.Logger, cache contentRefresher) (Job, error) {
	if logg == nil {
		return nil, errors.New("logger required")
	}
	if cache == nil {
		return nil, errors.New("content cache required")
	}
	return &contentWarmupJob{logg: logg, cache: cache}, nil
}

type contentWarmupJob struct {
	logg  *logger.Logger
	cache contentRefresher
}

func (j *contentWarmupJob) Name() string { return "content-cache-warmup" }

func (j *contentWarmupJob) Run(ctx context.Context) error {
	if err := j.cache.Refresh(ctx); err != nil {
		return err
	}
	j.logg.Debug(ctx, "cron.content_warmup.complete")
	return nil
}
