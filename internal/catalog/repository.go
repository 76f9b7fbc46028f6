package catalog

import (
	"context"
	"errors"

	pkgerrors "github.com/envasesysoluciones/cotizaciones-backend/pkg/errors"
	"github.com/envasesysoluciones/cotizaciones-backend/pkg/logger"
	"github.com/envasesysoluciones/cotizaciones-backend/pkg/prismic"
)

// Repository is the normalized read side of the content repository.
type Repository interface {
	ListProducts(ctx context.Context) ([]Product, error)
	ListCategories(ctx context.Context) ([]Option, error)
	ListMaterials(ctx context.Context) ([]Option, error)
	ListColors(ctx context.Context) ([]Option, error)
	GetProductBySlug(ctx context.Context, slug string) (*Product, error)
}

type contentSource interface {
	AllByType(ctx context.Context, docType string) ([]prismic.Document, error)
	ByUID(ctx context.Context, docType, uid string) (*prismic.Document, error)
}

// ContentRepository reads straight from the content API.
type ContentRepository struct {
	source contentSource
	logg   *logger.Logger
}

func NewContentRepository(source contentSource, logg *logger.Logger) *ContentRepository {
	return &ContentRepository{source: source, logg: logg}
}

func (r *ContentRepository) ListProducts(ctx context.Context) ([]Product, error) {
	docs, err := r.source.AllByType(ctx, TypeProduct)
	if err != nil {
		return nil, err
	}
	products := make([]Product, 0, len(docs))
	for _, doc := range docs {
		p, err := NormalizeProduct(doc)
		if err != nil {
			if r.logg != nil {
				r.logg.Warn(r.logg.WithFields(ctx, map[string]any{"document_id": doc.ID, "error": err.Error()}), "catalog.normalize.skipped")
			}
			continue
		}
		products = append(products, p)
	}
	return products, nil
}

func (r *ContentRepository) ListCategories(ctx context.Context) ([]Option, error) {
	return r.options(ctx, TypeCategory)
}

func (r *ContentRepository) ListMaterials(ctx context.Context) ([]Option, error) {
	return r.options(ctx, TypeMaterial)
}

func (r *ContentRepository) ListColors(ctx context.Context) ([]Option, error) {
	return r.options(ctx, TypeColor)
}

func (r *ContentRepository) options(ctx context.Context, docType string) ([]Option, error) {
	docs, err := r.source.AllByType(ctx, docType)
	if err != nil {
		return nil, err
	}
	opts := make([]Option, 0, len(docs))
	for _, doc := range docs {
		opts = append(opts, NormalizeOption(doc))
	}
	return opts, nil
}

// GetProductBySlug returns a CodeNotFound error when no product has the slug.
func (r *ContentRepository) GetProductBySlug(ctx context.Context, slug string) (*Product, error) {
	doc, err := r.source.ByUID(ctx, TypeProduct, slug)
	if errors.Is(err, prismic.ErrNotFound) {
		return nil, errProductNotFound(err)
	}
	if err != nil {
		return nil, err
	}
	p, err := NormalizeProduct(*doc)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func errProductNotFound(cause error) error {
	return pkgerrors.Wrap(pkgerrors.CodeNotFound, cause, "product not found")
}
