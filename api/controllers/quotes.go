package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/envasesysoluciones/cotizaciones-backend/api/responses"
	"github.com/envasesysoluciones/cotizaciones-backend/api/validators"
	"github.com/envasesysoluciones/cotizaciones-backend/internal/cart"
	"github.com/envasesysoluciones/cotizaciones-backend/internal/quotes"
	"github.com/envasesysoluciones/cotizaciones-backend/pkg/enums"
	pkgerrors "github.com/envasesysoluciones/cotizaciones-backend/pkg/errors"
	"github.com/envasesysoluciones/cotizaciones-backend/pkg/logger"
)

const (
	IncompleteDataMessage = "Datos incompletos"
	QuoteSentMessage      = "Cotización enviada exitosamente"
)

type quoteSubmitter interface {
	Submit(ctx context.Context, in quotes.SubmitInput) (*quotes.Receipt, error)
	State(sessionID string) enums.SubmissionState
}

type quoteRequest struct {
	Cliente   *quotes.ContactInfo `json:"cliente"`
	Productos []cart.LineItem     `json:"productos"`
}

type quoteResponse struct {
	Success        bool      `json:"success"`
	Message        string    `json:"message"`
	QuoteID        uuid.UUID `json:"quoteId"`
	AttachmentName string    `json:"attachmentName"`
	SubmittedAt    time.Time `json:"submittedAt"`
}

func newQuoteResponse(receipt *quotes.Receipt) quoteResponse {
	return quoteResponse{
		Success:        true,
		Message:        QuoteSentMessage,
		QuoteID:        receipt.QuoteID,
		AttachmentName: receipt.AttachmentName,
		SubmittedAt:    receipt.SubmittedAt,
	}
}

// SubmitQuote accepts a full quote in one request. It does not touch any
// cart session.
func SubmitQuote(pipeline quoteSubmitter, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if pipeline == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "quote pipeline unavailable"))
			return
		}

		var payload quoteRequest
		if err := validators.DecodeJSON(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, incomplete(err))
			return
		}
		if payload.Cliente == nil || len(payload.Productos) == 0 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, IncompleteDataMessage))
			return
		}

		receipt, err := pipeline.Submit(r.Context(), quotes.SubmitInput{
			Contact: *payload.Cliente,
			Items:   payload.Productos,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, incomplete(err))
			return
		}
		responses.WriteSuccess(w, newQuoteResponse(receipt))
	}
}

// incomplete rewrites validation failures to the public "Datos incompletos"
// message and keeps their details. Other errors pass through.
func incomplete(err error) error {
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		return err
	}
	out := pkgerrors.Wrap(pkgerrors.CodeValidation, err, IncompleteDataMessage)
	if details := typed.Details(); details != nil {
		return out.WithDetails(details)
	}
	if msg := typed.Message(); msg != "" {
		return out.WithDetails(map[string]any{"reason": msg})
	}
	return out
}
