package catalog

import (
	"context"
	"encoding/json"
	"slices"
	"strings"

	pkgerrors "github.com/envasesysoluciones/cotizaciones-backend/pkg/errors"
)

const (
	PerPage = 15

	maxPagesWithoutEllipsis = 7
)

// Service answers storefront catalog queries.
type Service interface {
	Browse(ctx context.Context, filter Filter) (*BrowseResult, error)
	Promotions(ctx context.Context) ([]Product, error)
	Filters(ctx context.Context) (*Filters, error)
	Product(ctx context.Context, slug string) (*Product, error)
}

// Filter narrows the catalog. Facets match when the product has any of the
// selected slugs.
type Filter struct {
	Query      string
	Categories []string
	Materials  []string
	Colors     []string
	Page       int
}

// PageLink is a page number or, when Ellipsis is set, a gap marker.
type PageLink struct {
	Number   int
	Ellipsis bool
}

func (p PageLink) MarshalJSON() ([]byte, error) {
	if p.Ellipsis {
		return json.Marshal("...")
	}
	return json.Marshal(p.Number)
}

type BrowseResult struct {
	Products   []Product  `json:"products"`
	Total      int        `json:"total"`
	Page       int        `json:"page"`
	PerPage    int        `json:"perPage"`
	TotalPages int        `json:"totalPages"`
	Pages      []PageLink `json:"pages"`
}

type Filters struct {
	Categories []Option `json:"categorias"`
	Materials  []Option `json:"materiales"`
	Colors     []Option `json:"colores"`
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) Browse(ctx context.Context, filter Filter) (*BrowseResult, error) {
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	matched := make([]Product, 0, len(products))
	for _, p := range products {
		if filter.matches(p) {
			matched = append(matched, p)
		}
	}

	totalPages := (len(matched) + PerPage - 1) / PerPage
	page := filter.Page
	if page > totalPages {
		page = totalPages
	}
	if page < 1 {
		page = 1
	}

	start := min((page-1)*PerPage, len(matched))
	end := min(start+PerPage, len(matched))
	return &BrowseResult{
		Products:   matched[start:end],
		Total:      len(matched),
		Page:       page,
		PerPage:    PerPage,
		TotalPages: totalPages,
		Pages:      PageLinks(page, totalPages),
	}, nil
}

func (f Filter) matches(p Product) bool {
	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		if !strings.Contains(strings.ToLower(p.Name), q) {
			return false
		}
	}
	return anyOf(f.Categories, p.Categories) && anyOf(f.Materials, p.Materials) && anyOf(f.Colors, p.Colors)
}

func anyOf(selected, have []string) bool {
	if len(selected) == 0 {
		return true
	}
	for _, slug := range have {
		if slices.Contains(selected, slug) {
			return true
		}
	}
	return false
}

// PageLinks lists every page when there are at most seven. Otherwise it
// keeps the first and last pages plus the neighbours of current, and marks
// the gaps.
func PageLinks(current, totalPages int) []PageLink {
	links := []PageLink{}
	if totalPages <= maxPagesWithoutEllipsis {
		for i := 1; i <= totalPages; i++ {
			links = append(links, PageLink{Number: i})
		}
		return links
	}

	seen := map[int]bool{}
	add := func(n int) {
		if !seen[n] {
			seen[n] = true
			links = append(links, PageLink{Number: n})
		}
	}
	gap := func() { links = append(links, PageLink{Ellipsis: true}) }

	add(1)
	left := max(current-1, 2)
	right := min(current+1, totalPages-1)

	if left > 2 {
		gap()
	} else {
		add(2)
	}
	for i := left; i <= right; i++ {
		add(i)
	}
	if right < totalPages-1 {
		gap()
	} else {
		add(totalPages - 1)
	}
	add(totalPages)
	return links
}

func (s *service) Promotions(ctx context.Context) ([]Product, error) {
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	out := []Product{}
	for _, p := range products {
		if p.HasPromotion() {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *service) Filters(ctx context.Context) (*Filters, error) {
	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	materials, err := s.repo.ListMaterials(ctx)
	if err != nil {
		return nil, err
	}
	colors, err := s.repo.ListColors(ctx)
	if err != nil {
		return nil, err
	}
	return &Filters{Categories: categories, Materials: materials, Colors: colors}, nil
}

func (s *service) Product(ctx context.Context, slug string) (*Product, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return s.repo.GetProductBySlug(ctx, slug)
}
