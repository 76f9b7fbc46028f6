package catalog

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/envasesysoluciones/cotizaciones-backend/pkg/errors"
	"github.com/envasesysoluciones/cotizaciones-backend/pkg/prismic"
)

// Content types in the repository.
const (
	TypeProduct  = "producto"
	TypeCategory = "categoria"
	TypeMaterial = "material"
	TypeColor    = "color"
)

// Option is a filter facet value.
type Option struct {
	ID   string `json:"id"`
	Slug string `json:"slug"`
	Name string `json:"name"`
}

type Image struct {
	URL    string `json:"url"`
	Alt    string `json:"alt,omitempty"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// Variant is one purchasable size of a product.
type Variant struct {
	Code          string           `json:"code"`
	Height        float64          `json:"height"`
	Diameter      float64          `json:"diameter"`
	Capacity      float64          `json:"capacity"`
	Price         decimal.Decimal  `json:"price"`
	OnSale        bool             `json:"onSale"`
	DiscountPrice *decimal.Decimal `json:"discountPrice,omitempty"`
	Available     bool             `json:"available"`
}

// Discounted reports whether the variant is on sale below its list price.
func (v Variant) Discounted() bool {
	return v.OnSale && v.DiscountPrice != nil && v.DiscountPrice.IsPositive() && v.DiscountPrice.LessThan(v.Price)
}

type Product struct {
	ID           string    `json:"id"`
	Slug         string    `json:"slug"`
	Name         string    `json:"name"`
	Description  []string  `json:"description"`
	Available    bool      `json:"available"`
	Variants     []Variant `json:"variants"`
	Categories   []string  `json:"categories"`
	Materials    []string  `json:"materials"`
	Colors       []string  `json:"colors"`
	LidColors    []string  `json:"lidColors"`
	Images       []Image   `json:"images"`
	ThumbnailURL string    `json:"thumbnailUrl,omitempty"`
	CartImageURL string    `json:"cartImageUrl,omitempty"`
}

// HasPromotion reports whether any variant is discounted.
func (p Product) HasPromotion() bool {
	for _, v := range p.Variants {
		if v.Discounted() {
			return true
		}
	}
	return false
}

type link struct {
	ID       string `json:"id"`
	UID      string `json:"uid"`
	Slug     string `json:"slug"`
	IsBroken bool   `json:"isBroken"`
}

type rawVariant struct {
	Code          string           `json:"codigo"`
	Height        *float64         `json:"altura"`
	Diameter      *float64         `json:"diametro"`
	Capacity      *float64         `json:"capacidad"`
	Price         decimal.Decimal  `json:"precio"`
	OnSale        bool             `json:"descuento"`
	DiscountPrice *decimal.Decimal `json:"precio_con_descuento"`
	Available     bool             `json:"variante_disponible"`
}

type rawProduct struct {
	Name        json.RawMessage `json:"nombre"`
	Description json.RawMessage `json:"descripcion"`
	Variants    []rawVariant    `json:"variantes"`
	Categories  []struct {
		Link link `json:"categoria"`
	} `json:"categorias"`
	Materials []struct {
		Link link `json:"material"`
	} `json:"materiales"`
	Colors []struct {
		Link link `json:"color"`
	} `json:"colores"`
	LidColors []struct {
		Link link `json:"color_de_tapa"`
	} `json:"colores_de_tapa"`
	Images []struct {
		Image struct {
			URL        string  `json:"url"`
			Alt        *string `json:"alt"`
			Dimensions struct {
				Width  int `json:"width"`
				Height int `json:"height"`
			} `json:"dimensions"`
		} `json:"imagen"`
	} `json:"imagenes"`
	Available bool `json:"producto_disponible"`
}

// NormalizeProduct converts a producto document into a Product. Variants of
// an unavailable product are all marked unavailable.
func NormalizeProduct(doc prismic.Document) (Product, error) {
	var raw rawProduct
	if len(doc.Data) > 0 {
		if err := json.Unmarshal(doc.Data, &raw); err != nil {
			return Product{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode product "+doc.ID)
		}
	}

	p := Product{
		ID:          doc.ID,
		Slug:        doc.UID,
		Name:        strings.TrimSpace(prismic.ExtractText(raw.Name)),
		Description: paragraphs(raw.Description),
		Available:   raw.Available,
		Variants:    make([]Variant, 0, len(raw.Variants)),
		Categories:  []string{},
		Materials:   []string{},
		Colors:      []string{},
		LidColors:   []string{},
		Images:      []Image{},
	}
	if p.Slug == "" && len(doc.Slugs) > 0 {
		p.Slug = doc.Slugs[0]
	}

	for _, rv := range raw.Variants {
		v := Variant{
			Code:          strings.TrimSpace(rv.Code),
			Height:        deref(rv.Height),
			Diameter:      deref(rv.Diameter),
			Capacity:      deref(rv.Capacity),
			Price:         rv.Price,
			OnSale:        rv.OnSale,
			DiscountPrice: rv.DiscountPrice,
			Available:     rv.Available && raw.Available,
		}
		p.Variants = append(p.Variants, v)
	}
	for _, c := range raw.Categories {
		p.Categories = appendSlug(p.Categories, c.Link)
	}
	for _, m := range raw.Materials {
		p.Materials = appendSlug(p.Materials, m.Link)
	}
	for _, c := range raw.Colors {
		p.Colors = appendSlug(p.Colors, c.Link)
	}
	for _, c := range raw.LidColors {
		p.LidColors = appendSlug(p.LidColors, c.Link)
	}
	for _, img := range raw.Images {
		if img.Image.URL == "" {
			continue
		}
		image := Image{URL: img.Image.URL, Width: img.Image.Dimensions.Width, Height: img.Image.Dimensions.Height}
		if img.Image.Alt != nil {
			image.Alt = *img.Image.Alt
		}
		p.Images = append(p.Images, image)
	}
	if len(p.Images) > 0 {
		p.ThumbnailURL = prismic.OptimizeImageURL(p.Images[0].URL, prismic.Thumbnail)
		p.CartImageURL = prismic.OptimizeImageURL(p.Images[0].URL, prismic.CartThumb)
	}
	return p, nil
}

// NormalizeOption converts a taxonomy document into a filter option. The slug
// falls back from uid to the first slug; the name from the text to the slug.
func NormalizeOption(doc prismic.Document) Option {
	var data struct {
		Name json.RawMessage `json:"nombre"`
	}
	if len(doc.Data) > 0 {
		_ = json.Unmarshal(doc.Data, &data)
	}
	slug := doc.UID
	if slug == "" && len(doc.Slugs) > 0 {
		slug = doc.Slugs[0]
	}
	name := strings.TrimSpace(prismic.ExtractText(data.Name))
	if name == "" {
		name = slug
	}
	return Option{ID: doc.ID, Slug: slug, Name: name}
}

func paragraphs(raw json.RawMessage) []string {
	out := []string{}
	var blocks []json.RawMessage
	if err := json.Unmarshal(raw, &blocks); err != nil {
		if text := prismic.ExtractText(raw); text != "" {
			out = append(out, text)
		}
		return out
	}
	for _, block := range blocks {
		if text := prismic.ExtractText(block); text != "" {
			out = append(out, text)
		}
	}
	return out
}

func appendSlug(dst []string, l link) []string {
	slug := l.Slug
	if slug == "" {
		slug = l.UID
	}
	if slug == "" || l.IsBroken {
		return dst
	}
	return append(dst, slug)
}

func deref(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}
