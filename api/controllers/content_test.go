package controllers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubContentCache struct {
	version    int64
	refreshes  int
	refreshErr error
}

func (s *stubContentCache) InvalidateTag(context.Context) (int64, error) {
	s.version++
	return s.version, nil
}

func (s *stubContentCache) Refresh(context.Context) error {
	s.refreshes++
	return s.refreshErr
}

func TestContentRevalidateWithHeaderSecret(t *testing.T) {
	cache := &stubContentCache{}
	req := httptest.NewRequest(http.MethodPost, "/content/revalidate", nil)
	req.Header.Set(WebhookSecretHeader, "s3cret")
	rec := httptest.NewRecorder()

	ContentRevalidate(cache, "s3cret", nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeData[revalidateResponse](t, rec)
	assert.True(t, body.Revalidated)
	assert.True(t, body.Warmed)
	assert.Equal(t, int64(1), body.Version)
	assert.Equal(t, 1, cache.refreshes)
}

func TestContentRevalidateWithBodySecret(t *testing.T) {
	cache := &stubContentCache{version: 4}
	rec := httptest.NewRecorder()
	ContentRevalidate(cache, "s3cret", nil).ServeHTTP(rec,
		jsonRequest(http.MethodPost, "/content/revalidate", `{"secret":"s3cret","type":"api-update"}`))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(5), decodeData[revalidateResponse](t, rec).Version)
}

func TestContentRevalidateRejectsWrongSecret(t *testing.T) {
	cache := &stubContentCache{}
	for _, body := range []string{"", `{"secret":"nope"}`, `not json`} {
		rec := httptest.NewRecorder()
		ContentRevalidate(cache, "s3cret", nil).ServeHTTP(rec, jsonRequest(http.MethodPost, "/content/revalidate", body))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, body)
	}
	assert.Zero(t, cache.version)
}

func TestContentRevalidateDisabledWithoutSecret(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/content/revalidate", nil)
	req.Header.Set(WebhookSecretHeader, "")
	rec := httptest.NewRecorder()
	ContentRevalidate(&stubContentCache{}, "", nil).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestContentRevalidateWarmupFailureStillSucceeds(t *testing.T) {
	cache := &stubContentCache{refreshErr: errors.New("prismic timeout")}
	req := httptest.NewRequest(http.MethodPost, "/content/revalidate", nil)
	req.Header.Set(WebhookSecretHeader, "s3cret")
	rec := httptest.NewRecorder()

	ContentRevalidate(cache, "s3cret", quietLogger()).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeData[revalidateResponse](t, rec)
	assert.True(t, body.Revalidated)
	assert.False(t, body.Warmed)
}
