package controllers

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/envasesysoluciones/cotizaciones-backend/api/responses"
	"github.com/envasesysoluciones/cotizaciones-backend/api/validators"
	pkgerrors "github.com/envasesysoluciones/cotizaciones-backend/pkg/errors"
	"github.com/envasesysoluciones/cotizaciones-backend/pkg/logger"
)

const WebhookSecretHeader = "X-Webhook-Secret"

type contentCache interface {
	InvalidateTag(ctx context.Context) (int64, error)
	Refresh(ctx context.Context) error
}

// The content webhook may carry its secret in the body instead of the header.
type revalidateRequest struct {
	Secret string `json:"secret"`
}

type revalidateResponse struct {
	Revalidated bool      `json:"revalidated"`
	Version     int64     `json:"version"`
	Warmed      bool      `json:"warmed"`
	Now         time.Time `json:"now"`
}

// ContentRevalidate drops every cached content entry and warms the cache again.
// A failed warmup is logged; the next read repopulates lazily.
func ContentRevalidate(cache contentCache, secret string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cache == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "content cache unavailable"))
			return
		}
		if secret == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "revalidation disabled"))
			return
		}

		provided := strings.TrimSpace(r.Header.Get(WebhookSecretHeader))
		if provided == "" && r.ContentLength != 0 {
			var body revalidateRequest
			if err := validators.DecodeJSON(r, &body); err == nil {
				provided = strings.TrimSpace(body.Secret)
			}
		}
		if subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) != 1 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid webhook secret"))
			return
		}

		version, err := cache.InvalidateTag(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		warmed := true
		if err := cache.Refresh(r.Context()); err != nil {
			warmed = false
			if logg != nil {
				logg.Warn(logg.WithField(r.Context(), "error", err.Error()), "content.revalidate.warmup_failed")
			}
		}
		responses.WriteSuccess(w, revalidateResponse{Revalidated: true, Version: version, Warmed: warmed, Now: time.Now().UTC()})
	}
}
