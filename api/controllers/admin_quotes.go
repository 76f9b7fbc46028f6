package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/envasesysoluciones/cotizaciones-backend/api/responses"
	"github.com/envasesysoluciones/cotizaciones-backend/api/validators"
	"github.com/envasesysoluciones/cotizaciones-backend/internal/quotes"
	"github.com/envasesysoluciones/cotizaciones-backend/pkg/db/models"
	pkgerrors "github.com/envasesysoluciones/cotizaciones-backend/pkg/errors"
	"github.com/envasesysoluciones/cotizaciones-backend/pkg/logger"
	"github.com/envasesysoluciones/cotizaciones-backend/pkg/pagination"
	"github.com/envasesysoluciones/cotizaciones-backend/pkg/storage/gcs"
)

type quoteReader interface {
	List(ctx context.Context, params quotes.ListParams) (pagination.Page[models.QuoteRequest], error)
	Get(ctx context.Context, id uuid.UUID) (*models.QuoteRequest, error)
}

// ArchiveSigner turns an archived gs:// path into a short-lived download link.
type ArchiveSigner interface {
	SignedReadURL(bucket, object string, ttl time.Duration) (string, error)
}

const archiveLinkTTL = 15 * time.Minute

type adminQuoteResponse struct {
	ID                uuid.UUID       `json:"id"`
	SessionID         *string         `json:"session_id,omitempty"`
	FirstName         string          `json:"first_name"`
	LastName          string          `json:"last_name"`
	Email             string          `json:"email"`
	Phone             string          `json:"phone"`
	ContactPreference string          `json:"contact_preference"`
	Items             json.RawMessage `json:"items,omitempty"`
	TotalItems        int             `json:"total_items"`
	TotalAmount       decimal.Decimal `json:"total_amount"`
	AttachmentName    string          `json:"attachment_name"`
	ArchivePath       *string         `json:"archive_path,omitempty"`
	ArchiveURL        string          `json:"archive_url,omitempty"`
	SubmittedAt       time.Time       `json:"submitted_at"`
}

func newAdminQuoteResponse(record models.QuoteRequest, withItems bool) adminQuoteResponse {
	out := adminQuoteResponse{
		ID:                record.ID,
		SessionID:         record.SessionID,
		FirstName:         record.FirstName,
		LastName:          record.LastName,
		Email:             record.Email,
		Phone:             record.Phone,
		ContactPreference: string(record.ContactPreference),
		TotalItems:        record.TotalItems,
		TotalAmount:       record.TotalAmount,
		AttachmentName:    record.AttachmentName,
		ArchivePath:       record.ArchivePath,
		SubmittedAt:       record.SubmittedAt,
	}
	if withItems {
		out.Items = record.Items
	}
	return out
}

// AdminQuotesList pages through dispatched quotes, newest first.
func AdminQuotesList(repo quoteReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "quote repository unavailable"))
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := repo.List(r.Context(), quotes.ListParams{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
			Email:  strings.TrimSpace(r.URL.Query().Get("email")),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]adminQuoteResponse, 0, len(page.Items))
		for _, record := range page.Items {
			items = append(items, newAdminQuoteResponse(record, false))
		}
		responses.WriteSuccess(w, pagination.Page[adminQuoteResponse]{Items: items, NextCursor: page.NextCursor})
	}
}

// AdminQuoteGet returns one quote with its items. With a signer, archived
// PDFs also get a download link; signing failures only drop the link.
func AdminQuoteGet(repo quoteReader, signer ArchiveSigner, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		record, ok := loadQuote(w, r, repo, logg)
		if !ok {
			return
		}
		out := newAdminQuoteResponse(*record, true)
		if signer != nil && record.ArchivePath != nil {
			if bucket, object, ok := gcs.SplitPath(*record.ArchivePath); ok {
				link, err := signer.SignedReadURL(bucket, object, archiveLinkTTL)
				if err != nil && logg != nil {
					logg.Warn(logg.WithField(r.Context(), "error", err.Error()), "admin.quote.archive_link_failed")
				}
				out.ArchiveURL = link
			}
		}
		responses.WriteSuccess(w, out)
	}
}

// AdminQuoteDocument regenerates the PDF that was emailed for a quote.
func AdminQuoteDocument(repo quoteReader, opts quotes.DocumentOptions, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		record, ok := loadQuote(w, r, repo, logg)
		if !ok {
			return
		}
		doc, err := quotes.DocumentFromRecord(record, opts)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		pdf, err := quotes.RenderPDF(doc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "render quote document"))
			return
		}

		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `inline; filename="`+record.AttachmentName+`"`)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(pdf)
	}
}

func loadQuote(w http.ResponseWriter, r *http.Request, repo quoteReader, logg *logger.Logger) (*models.QuoteRequest, bool) {
	if repo == nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "quote repository unavailable"))
		return nil, false
	}
	id, err := uuid.Parse(chi.URLParam(r, "quoteId"))
	if err != nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid quote id"))
		return nil, false
	}
	record, err := repo.Get(r.Context(), id)
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return nil, false
	}
	return record, true
}
