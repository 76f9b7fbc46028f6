package quotes

import (
	"github.com/envasesysoluciones/cotizaciones-backend/internal/cart"
	"github.com/envasesysoluciones/cotizaciones-backend/pkg/db/models"
	pkgerrors "github.com/envasesysoluciones/cotizaciones-backend/pkg/errors"
)

// DocumentFromRecord rebuilds the document of a stored quote. The submission
// time is the document date, so the output matches what was emailed.
func DocumentFromRecord(record *models.QuoteRequest, opts DocumentOptions) (Document, error) {
	if record == nil {
		return Document{}, pkgerrors.New(pkgerrors.CodeNotFound, "quote not found")
	}
	items, err := cart.DecodeItems(record.Items)
	if err != nil {
		return Document{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode stored quote items")
	}
	contact := ContactInfo{
		FirstName:  record.FirstName,
		LastName:   record.LastName,
		Email:      record.Email,
		Phone:      record.Phone,
		Preference: record.ContactPreference,
	}
	return BuildDocument(contact, items, record.SubmittedAt, opts), nil
}
