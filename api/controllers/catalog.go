package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/envasesysoluciones/cotizaciones-backend/api/responses"
	"github.com/envasesysoluciones/cotizaciones-backend/api/validators"
	"github.com/envasesysoluciones/cotizaciones-backend/internal/catalog"
	pkgerrors "github.com/envasesysoluciones/cotizaciones-backend/pkg/errors"
	"github.com/envasesysoluciones/cotizaciones-backend/pkg/logger"
)

const (
	maxQueryLength = 100
	maxPage        = 10000
)

// CatalogProducts lists products filtered by ?q=&categorias=&materiales=&colores=&pagina=.
func CatalogProducts(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}
		page, err := validators.ParseQueryInt(r, "pagina", 1, 1, maxPage)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Browse(r.Context(), catalog.Filter{
			Query:      validators.SanitizeString(r.URL.Query().Get("q"), maxQueryLength),
			Categories: validators.ParseQueryList(r, "categorias"),
			Materials:  validators.ParseQueryList(r, "materiales"),
			Colors:     validators.ParseQueryList(r, "colores"),
			Page:       page,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func CatalogProduct(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}
		product, err := svc.Product(r.Context(), chi.URLParam(r, "slug"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

func CatalogPromotions(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}
		products, err := svc.Promotions(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, products)
	}
}

func CatalogFilters(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}
		filters, err := svc.Filters(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, filters)
	}
}
