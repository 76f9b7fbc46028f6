package controllers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/envasesysoluciones/cotizaciones-backend/api/middleware"
	"github.com/envasesysoluciones/cotizaciones-backend/api/responses"
	"github.com/envasesysoluciones/cotizaciones-backend/api/validators"
	"github.com/envasesysoluciones/cotizaciones-backend/internal/cart"
	"github.com/envasesysoluciones/cotizaciones-backend/internal/notifications"
	"github.com/envasesysoluciones/cotizaciones-backend/internal/quotes"
	pkgerrors "github.com/envasesysoluciones/cotizaciones-backend/pkg/errors"
	"github.com/envasesysoluciones/cotizaciones-backend/pkg/logger"
)

type cartSessions interface {
	Acquire(ctx context.Context, sessionID string) (*cart.Session, func(), error)
}

type addItemRequest struct {
	ProductID        string           `json:"productId" validate:"max=128"`
	ProductName      string           `json:"productName" validate:"required,max=200"`
	ProductImage     string           `json:"productImage" validate:"max=2048"`
	VariantCode      string           `json:"variantCode" validate:"required,max=64"`
	Capacity         float64          `json:"capacity" validate:"gte=0"`
	Height           float64          `json:"height" validate:"gte=0"`
	Diameter         float64          `json:"diameter" validate:"gte=0"`
	Price            decimal.Decimal  `json:"price"`
	DiscountPrice    *decimal.Decimal `json:"discountPrice"`
	Quantity         int              `json:"quantity" validate:"gte=0,max=100000"`
	SelectedLidColor string           `json:"selectedLidColor" validate:"max=64"`
}

func (r addItemRequest) toLineItem() (cart.LineItem, error) {
	if r.Price.IsNegative() {
		return cart.LineItem{}, pkgerrors.New(pkgerrors.CodeValidation, "Datos inválidos").
			WithDetails(map[string]string{"price": "must not be negative"})
	}
	return cart.LineItem{
		ProductID:        validators.SanitizeString(r.ProductID, 128),
		ProductName:      validators.SanitizeString(r.ProductName, 200),
		ProductImage:     validators.SanitizeString(r.ProductImage, 2048),
		VariantCode:      validators.SanitizeString(r.VariantCode, 64),
		Capacity:         r.Capacity,
		Height:           r.Height,
		Diameter:         r.Diameter,
		Price:            r.Price,
		DiscountPrice:    r.DiscountPrice,
		Quantity:         r.Quantity,
		SelectedLidColor: validators.SanitizeString(r.SelectedLidColor, 64),
	}, nil
}

type updateQuantityRequest struct {
	Quantity *int `json:"quantity" validate:"required"`
}

type setOpenRequest struct {
	IsOpen *bool `json:"isOpen" validate:"required"`
}

type checkoutRequest struct {
	Cliente quotes.ContactInfo `json:"cliente"`
}

type addItemResponse struct {
	Cart         cart.Summary               `json:"cart"`
	Notification notifications.Notification `json:"notification"`
}

type checkoutStateResponse struct {
	State string `json:"state"`
}

// withSession acquires the request's cart session for the duration of fn.
func withSession(w http.ResponseWriter, r *http.Request, sessions cartSessions, logg *logger.Logger, fn func(sess *cart.Session) (any, error)) {
	if sessions == nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart sessions unavailable"))
		return
	}
	sessionID := middleware.SessionIDFromContext(r.Context())
	if sessionID == "" {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "cart session missing"))
		return
	}

	sess, release, err := sessions.Acquire(r.Context(), sessionID)
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}
	out, err := fn(sess)
	release()
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}
	responses.WriteSuccess(w, out)
}

func CartGet(sessions cartSessions, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		withSession(w, r, sessions, logg, func(sess *cart.Session) (any, error) {
			return sess.Summary(), nil
		})
	}
}

func CartAddItem(sessions cartSessions, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload addItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		item, err := payload.toLineItem()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		withSession(w, r, sessions, logg, func(sess *cart.Session) (any, error) {
			note, err := sess.Store().AddItem(r.Context(), item)
			if err != nil {
				return nil, err
			}
			return addItemResponse{Cart: sess.Summary(), Notification: note}, nil
		})
	}
}

func CartUpdateItem(sessions cartSessions, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload updateQuantityRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		itemID := chi.URLParam(r, "itemId")

		withSession(w, r, sessions, logg, func(sess *cart.Session) (any, error) {
			if err := sess.Store().UpdateQuantity(r.Context(), itemID, *payload.Quantity); err != nil {
				return nil, err
			}
			return sess.Summary(), nil
		})
	}
}

func CartRemoveItem(sessions cartSessions, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		itemID := chi.URLParam(r, "itemId")
		withSession(w, r, sessions, logg, func(sess *cart.Session) (any, error) {
			if err := sess.Store().RemoveItem(r.Context(), itemID); err != nil {
				return nil, err
			}
			return sess.Summary(), nil
		})
	}
}

func CartClear(sessions cartSessions, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		withSession(w, r, sessions, logg, func(sess *cart.Session) (any, error) {
			if err := sess.Store().Clear(r.Context()); err != nil {
				return nil, err
			}
			return sess.Summary(), nil
		})
	}
}

func CartSetOpen(sessions cartSessions, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload setOpenRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		withSession(w, r, sessions, logg, func(sess *cart.Session) (any, error) {
			sess.Store().SetOpen(*payload.IsOpen)
			return sess.Summary(), nil
		})
	}
}

func CartNotifications(sessions cartSessions, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		withSession(w, r, sessions, logg, func(sess *cart.Session) (any, error) {
			return sess.Notifications().Active(), nil
		})
	}
}

// CartCheckout submits the session's cart. The session is released while the
// quote is dispatched so the in-flight guard can answer concurrent requests.
// After a successful dispatch only the quoted quantities leave the cart.
func CartCheckout(sessions cartSessions, pipeline quoteSubmitter, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if sessions == nil || pipeline == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout unavailable"))
			return
		}
		var payload checkoutRequest
		if err := validators.DecodeJSON(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sessionID := middleware.SessionIDFromContext(r.Context())
		sess, release, err := sessions.Acquire(r.Context(), sessionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		items := sess.Store().Items()
		release()

		receipt, err := pipeline.Submit(r.Context(), quotes.SubmitInput{
			SessionID: sessionID,
			Contact:   payload.Cliente,
			Items:     items,
			OnSuccess: func(ctx context.Context) error {
				sess, release, err := sessions.Acquire(ctx, sessionID)
				if err != nil {
					return err
				}
				defer release()
				return sess.Store().RemoveQuoted(ctx, items)
			},
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newQuoteResponse(receipt))
	}
}

func CartCheckoutState(pipeline quoteSubmitter, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if pipeline == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout unavailable"))
			return
		}
		state := pipeline.State(middleware.SessionIDFromContext(r.Context()))
		responses.WriteSuccess(w, checkoutStateResponse{State: string(state)})
	}
}
