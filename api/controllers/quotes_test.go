package controllers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/envasesysoluciones/cotizaciones-backend/pkg/errors"
)

const validQuoteBody = `{
  "cliente": {"nombre":"Ana","apellidos":"Mora","email":"ana@example.com","telefono":"8888-8888","preferenciaContacto":"correo"},
  "productos": [
    {"productId":"p1","productName":"Frasco Hexagonal","variantCode":"HEX-250","price":1500,"discountPrice":1200,"quantity":2,"selectedLidColor":"dorada","extra":"ignored"}
  ]
}`

func TestSubmitQuoteSuccess(t *testing.T) {
	dispatcher := &recordingDispatcher{}
	handler := SubmitQuote(newTestPipeline(t, dispatcher), nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, jsonRequest(http.MethodPost, "/api/cotizacion", validQuoteBody))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeData[quoteResponse](t, rec)
	assert.True(t, body.Success)
	assert.Equal(t, "Cotización enviada exitosamente", body.Message)
	assert.NotEmpty(t, body.QuoteID)
	assert.Equal(t, "cotizacion-ana-1792422245000.pdf", body.AttachmentName)

	require.Equal(t, 1, dispatcher.count())
	msg := dispatcher.sent[0]
	assert.Equal(t, "Nueva Cotización - Ana Mora", msg.Subject)
	assert.Contains(t, msg.Text, "Preferencia de contacto: Correo electrónico")
	assert.Contains(t, msg.Text, "Color de tapa: dorada")
}

func TestSubmitQuoteIncompleteData(t *testing.T) {
	cases := map[string]string{
		"missing cliente":   `{"productos":[{"productName":"x","variantCode":"A","price":1,"quantity":1}]}`,
		"empty productos":   `{"cliente":{"nombre":"Ana"},"productos":[]}`,
		"invalid email":     `{"cliente":{"nombre":"Ana","apellidos":"Mora","email":"nope","telefono":"1","preferenciaContacto":"email"},"productos":[{"productName":"x","variantCode":"A","price":1,"quantity":1}]}`,
		"zero quantity":     `{"cliente":{"nombre":"Ana","apellidos":"Mora","email":"a@b.co","telefono":"1","preferenciaContacto":"email"},"productos":[{"productName":"x","variantCode":"A","price":1,"quantity":0}]}`,
		"negative price":    `{"cliente":{"nombre":"Ana","apellidos":"Mora","email":"a@b.co","telefono":"1","preferenciaContacto":"email"},"productos":[{"productName":"x","variantCode":"A","price":-1500,"quantity":1}]}`,
		"negative discount": `{"cliente":{"nombre":"Ana","apellidos":"Mora","email":"a@b.co","telefono":"1","preferenciaContacto":"email"},"productos":[{"productName":"x","variantCode":"A","price":1500,"discountPrice":-1,"quantity":1}]}`,
		"malformed payload": `{"cliente":`,
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			dispatcher := &recordingDispatcher{}
			rec := httptest.NewRecorder()
			SubmitQuote(newTestPipeline(t, dispatcher), nil).ServeHTTP(rec, jsonRequest(http.MethodPost, "/api/cotizacion", payload))

			require.Equal(t, http.StatusBadRequest, rec.Code)
			body := decodeErr(t, rec)
			assert.Equal(t, "Datos incompletos", body.Message)
			assert.Equal(t, string(pkgerrors.CodeValidation), body.Code)
			assert.Zero(t, dispatcher.count())
		})
	}
}

func TestSubmitQuoteDispatchFailure(t *testing.T) {
	dispatcher := &recordingDispatcher{err: errors.New("smtp: 451 try later")}
	rec := httptest.NewRecorder()
	SubmitQuote(newTestPipeline(t, dispatcher), nil).ServeHTTP(rec, jsonRequest(http.MethodPost, "/api/cotizacion", validQuoteBody))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeErr(t, rec)
	assert.Equal(t, "Error al procesar la cotización", body.Message)
	assert.NotContains(t, rec.Body.String(), "smtp")
}

func TestSubmitQuoteDoesNotDeduplicate(t *testing.T) {
	dispatcher := &recordingDispatcher{}
	handler := SubmitQuote(newTestPipeline(t, dispatcher), nil)
	for range 2 {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, jsonRequest(http.MethodPost, "/api/cotizacion", validQuoteBody))
		require.Equal(t, http.StatusOK, rec.Code)
	}
	assert.Equal(t, 2, dispatcher.count())
}
