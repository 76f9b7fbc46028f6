package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/envasesysoluciones/cotizaciones-backend/api/middleware"
	"github.com/envasesysoluciones/cotizaciones-backend/internal/cart"
	"github.com/envasesysoluciones/cotizaciones-backend/internal/quotes"
	"github.com/envasesysoluciones/cotizaciones-backend/pkg/logger"
	"github.com/envasesysoluciones/cotizaciones-backend/pkg/mailer"
)

var testNow = time.Date(2026, time.October, 19, 15, 4, 5, 0, time.UTC)

type memStorage struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemStorage() *memStorage { return &memStorage{data: map[string][]byte{}} }

func (m *memStorage) Load(_ context.Context, sessionID, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[sessionID+"/"+key], nil
}

func (m *memStorage) Save(_ context.Context, sessionID, key string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[sessionID+"/"+key] = append([]byte(nil), payload...)
	return nil
}

func (m *memStorage) Delete(_ context.Context, sessionID, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, sessionID+"/"+key)
	return nil
}

type recordingDispatcher struct {
	mu   sync.Mutex
	sent []mailer.Message
	err  error
}

func (d *recordingDispatcher) Send(_ context.Context, msg mailer.Message) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.sent = append(d.sent, msg)
	return nil
}

func (d *recordingDispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.sent)
}

func quietLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func newTestSessions(t *testing.T) *cart.Sessions {
	t.Helper()
	sessions, err := cart.NewSessions(cart.SessionsParams{
		Storage:    newMemStorage(),
		StorageKey: "cotizacion-cart",
		Logger:     quietLogger(),
	})
	require.NoError(t, err)
	return sessions
}

func newTestPipeline(t *testing.T, dispatcher quotes.Dispatcher) *quotes.Pipeline {
	t.Helper()
	p, err := quotes.NewPipeline(quotes.PipelineParams{
		Dispatcher: dispatcher,
		From:       "cotizaciones@envases.example",
		Recipients: []string{"ventas@envases.example"},
		Logger:     quietLogger(),
		Now:        func() time.Time { return testNow },
	})
	require.NoError(t, err)
	return p
}

func jsonRequest(method, target, body string) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func withCartSession(req *http.Request, sessionID string) *http.Request {
	return req.WithContext(middleware.WithSessionID(req.Context(), sessionID))
}

func decodeData[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var envelope struct {
		Data T `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&envelope), rec.Body.String())
	return envelope.Data
}

type errorBody struct {
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Details json.RawMessage `json:"details"`
}

func decodeErr(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var envelope struct {
		Error errorBody `json:"error"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&envelope), rec.Body.String())
	return envelope.Error
}
