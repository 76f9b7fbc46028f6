package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/envasesysoluciones/cotizaciones-backend/api/controllers"
	"github.com/envasesysoluciones/cotizaciones-backend/api/middleware"
	"github.com/envasesysoluciones/cotizaciones-backend/internal/cart"
	"github.com/envasesysoluciones/cotizaciones-backend/internal/catalog"
	"github.com/envasesysoluciones/cotizaciones-backend/internal/quotes"
	"github.com/envasesysoluciones/cotizaciones-backend/pkg/config"
	"github.com/envasesysoluciones/cotizaciones-backend/pkg/db/models"
	"github.com/envasesysoluciones/cotizaciones-backend/pkg/enums"
	"github.com/envasesysoluciones/cotizaciones-backend/pkg/logger"
	"github.com/envasesysoluciones/cotizaciones-backend/pkg/metrics"
	"github.com/envasesysoluciones/cotizaciones-backend/pkg/pagination"
)

type CartSessions interface {
	Acquire(ctx context.Context, sessionID string) (*cart.Session, func(), error)
}

type QuoteSubmitter interface {
	Submit(ctx context.Context, in quotes.SubmitInput) (*quotes.Receipt, error)
	State(sessionID string) enums.SubmissionState
}

type ContentCache interface {
	InvalidateTag(ctx context.Context) (int64, error)
	Refresh(ctx context.Context) error
}

type QuoteReader interface {
	List(ctx context.Context, params quotes.ListParams) (pagination.Page[models.QuoteRequest], error)
	Get(ctx context.Context, id uuid.UUID) (*models.QuoteRequest, error)
}

type RateStore interface {
	HitWindow(ctx context.Context, scope string, window time.Duration) (int64, error)
}

// Deps collects what the HTTP surface needs. A nil service answers 500 on its
// routes; a nil RateStore disables the quote limiter.
type Deps struct {
	Config        *config.Config
	Logger        *logger.Logger
	Pingers       map[string]controllers.Pinger
	RateStore     RateStore
	Metrics       *prometheus.Registry
	Sessions      CartSessions
	Pipeline      QuoteSubmitter
	Catalog       catalog.Service
	ContentCache  ContentCache
	Quotes        QuoteReader
	Document      quotes.DocumentOptions
	// ArchiveSigner adds download links for archived PDFs; nil omits them.
	ArchiveSigner controllers.ArchiveSigner
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS),
		middleware.RateLimit(middleware.NewIPLimiters(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst), logg),
	)

	quotePolicy := middleware.NewQuoteRateLimitPolicy(
		"quote",
		cfg.RateLimit.QuoteWindow,
		cfg.RateLimit.QuoteIPLimit,
		cfg.RateLimit.QuoteEmailLimit,
	)
	quoteLimit := middleware.QuoteRateLimit(quotePolicy, deps.RateStore, logg)

	sessions := deps.Sessions
	pipeline := deps.Pipeline
	quoteRepo := deps.Quotes

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, deps.Pingers, logg))
	})
	if deps.Metrics != nil {
		r.Handle("/metrics", metrics.Handler(deps.Metrics))
	}

	// Path the storefront has always posted to.
	r.With(quoteLimit).Post("/api/cotizacion", controllers.SubmitQuote(pipeline, logg))

	r.Route("/api/v1", func(r chi.Router) {
		r.With(quoteLimit).Post("/quotes", controllers.SubmitQuote(pipeline, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Use(middleware.CartSession(cfg.Cart.TTL, cfg.App.IsProd(), logg))
			r.Get("/", controllers.CartGet(sessions, logg))
			r.Delete("/", controllers.CartClear(sessions, logg))
			r.Put("/open", controllers.CartSetOpen(sessions, logg))
			r.Get("/notifications", controllers.CartNotifications(sessions, logg))
			r.Post("/items", controllers.CartAddItem(sessions, logg))
			r.Patch("/items/{itemId}", controllers.CartUpdateItem(sessions, logg))
			r.Delete("/items/{itemId}", controllers.CartRemoveItem(sessions, logg))
			r.With(quoteLimit).Post("/checkout", controllers.CartCheckout(sessions, pipeline, logg))
			r.Get("/checkout", controllers.CartCheckoutState(pipeline, logg))
		})

		r.Route("/catalog", func(r chi.Router) {
			r.Get("/products", controllers.CatalogProducts(deps.Catalog, logg))
			r.Get("/products/{slug}", controllers.CatalogProduct(deps.Catalog, logg))
			r.Get("/promotions", controllers.CatalogPromotions(deps.Catalog, logg))
			r.Get("/filters", controllers.CatalogFilters(deps.Catalog, logg))
		})

		r.Post("/content/revalidate", controllers.ContentRevalidate(deps.ContentCache, cfg.Content.WebhookSecret, logg))
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.AdminAuth(cfg.JWT, logg))
		r.Use(middleware.RequireAdminRole(logg, enums.AdminRoleOwner, enums.AdminRoleSales))
		r.Get("/quotes", controllers.AdminQuotesList(quoteRepo, logg))
		r.Get("/quotes/{quoteId}", controllers.AdminQuoteGet(quoteRepo, deps.ArchiveSigner, logg))
		r.Get("/quotes/{quoteId}/document", controllers.AdminQuoteDocument(quoteRepo, deps.Document, logg))
	})

	return r
}
