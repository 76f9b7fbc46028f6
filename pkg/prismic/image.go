package prismic

import (
	"net/url"
	"strconv"
)

const (
	defaultQuality = 75
	defaultFit     = "max"
	defaultFormat  = "auto"
)

// ImageOptions are imgix rendering parameters. Zero values take the defaults.
type ImageOptions struct {
	Width   int
	Height  int
	Quality int
	Fit     string
	Format  string
}

// Named sizes used across catalog and cart responses.
var (
	Thumbnail    = ImageOptions{Width: 280, Height: 280, Quality: 65}
	GalleryThumb = ImageOptions{Width: 80, Height: 80, Quality: 50}
	CartThumb    = ImageOptions{Width: 80, Height: 80, Quality: 50}
	ProductMain  = ImageOptions{Width: 500, Height: 500, Quality: 75}
	ProductLarge = ImageOptions{Width: 800, Height: 800, Quality: 80}
)

// Presets indexes the named sizes by their public name.
var Presets = map[string]ImageOptions{
	"thumbnail":    Thumbnail,
	"galleryThumb": GalleryThumb,
	"cartThumb":    CartThumb,
	"productMain":  ProductMain,
	"productLarge": ProductLarge,
}

// OptimizeImageURL rewrites an image CDN URL with size, quality and format
// parameters. Empty or unparsable input is returned unchanged.
func OptimizeImageURL(raw string, opts ImageOptions) string {
	if raw == "" {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return raw
	}

	quality := opts.Quality
	if quality <= 0 {
		quality = defaultQuality
	}
	fit := opts.Fit
	if fit == "" {
		fit = defaultFit
	}
	format := opts.Format
	if format == "" {
		format = defaultFormat
	}

	q := u.Query()
	if opts.Width > 0 {
		q.Set("w", strconv.Itoa(opts.Width))
	}
	if opts.Height > 0 {
		q.Set("h", strconv.Itoa(opts.Height))
	}
	q.Set("q", strconv.Itoa(quality))
	q.Set("fit", fit)
	q.Set("fm", format)
	q.Set("auto", "format,compress")
	u.RawQuery = q.Encode()
	return u.String()
}
