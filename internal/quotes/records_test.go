package quotes

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/envasesysoluciones/cotizaciones-backend/internal/cart"
	"github.com/envasesysoluciones/cotizaciones-backend/pkg/db/models"
	pkgerrors "github.com/envasesysoluciones/cotizaciones-backend/pkg/errors"
)

func TestDocumentFromRecordMatchesOriginal(t *testing.T) {
	contact := sampleContact()
	items := []cart.LineItem{item("A-1", "Frasco", "Blanca", "100", 2), item("B-2", "Botella", "", "150", 1)}
	payload, err := cart.EncodeItems(items)
	require.NoError(t, err)

	loc, err := time.LoadLocation("America/Costa_Rica")
	require.NoError(t, err)
	opts := DocumentOptions{Location: loc, SiteURL: "https://www.envasesoluciones.com"}

	record := &models.QuoteRequest{
		FirstName:         contact.FirstName,
		LastName:          contact.LastName,
		Email:             contact.Email,
		Phone:             contact.Phone,
		ContactPreference: contact.Preference,
		Items:             payload,
		SubmittedAt:       fixedNow.UTC(),
	}

	rebuilt, err := DocumentFromRecord(record, opts)
	require.NoError(t, err)
	original := BuildDocument(contact, items, fixedNow, opts)

	assert.Equal(t, RenderText(original), RenderText(rebuilt))
	assert.True(t, rebuilt.Total.Equal(original.Total))

	a, err := RenderPDF(original)
	require.NoError(t, err)
	b, err := RenderPDF(rebuilt)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(a, b), "regenerated pdf differs")
}

func TestDocumentFromRecordErrors(t *testing.T) {
	_, err := DocumentFromRecord(nil, DocumentOptions{})
	require.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())

	_, err = DocumentFromRecord(&models.QuoteRequest{Items: []byte(`{"broken"`)}, DocumentOptions{})
	require.Equal(t, pkgerrors.CodeInternal, pkgerrors.As(err).Code())
}
