package checkout

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vitrine-shop/backend-loja/internal/cart"
	"github.com/vitrine-shop/backend-loja/internal/common"
	"github.com/vitrine-shop/backend-loja/internal/coupon"
	"github.com/vitrine-shop/backend-loja/internal/pricing"
	"github.com/vitrine-shop/backend-loja/internal/shipping"
)

// Handler exposes checkout quote and finalize endpoints.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
}

type checkoutRequest struct {
	CouponCode     string        `json:"couponCode"`
	DestinationCEP string        `json:"destinationCep"`
	MethodID       *string       `json:"shippingMethodId" validate:"omitempty,uuid4"`
	Items          []requestItem `json:"items" validate:"required,min=1,dive"`
}

type requestItem struct {
	ProductID  string  `json:"productId" validate:"required,uuid4"`
	UnitPrice  string  `json:"unitPrice" validate:"required"`
	Quantity   int     `json:"quantity" validate:"required,min=1"`
	WeightKg   string  `json:"weightKg"`
	CategoryID *string `json:"categoryId" validate:"omitempty,uuid4"`
	BrandID    *string `json:"brandId" validate:"omitempty,uuid4"`
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (Input, bool) {
	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return Input{}, false
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(req); err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
			return Input{}, false
		}
	}
	snap, err := toSnapshot(req.Items)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return Input{}, false
	}
	in := Input{
		Snapshot:       snap,
		CouponCode:     req.CouponCode,
		DestinationCEP: req.DestinationCEP,
	}
	if req.MethodID != nil {
		id, err := uuid.Parse(*req.MethodID)
		if err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid shippingMethodId", nil)
			return Input{}, false
		}
		in.MethodID = &id
	}
	if raw, ok := common.CustomerID(r.Context()); ok {
		if parsed, err := uuid.Parse(strings.TrimSpace(raw)); err == nil {
			in.CustomerID = &parsed
		}
	}
	return in, true
}

// Quote composes provisional totals for the submitted cart.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "checkout service not configured", nil)
		return
	}
	in, ok := h.decode(w, r)
	if !ok {
		return
	}
	result, err := h.Svc.Quote(r.Context(), in)
	if err != nil {
		writeCheckoutError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, result)
}

// Finalize creates the order and settles the applied coupon.
func (h *Handler) Finalize(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "checkout service not configured", nil)
		return
	}
	in, ok := h.decode(w, r)
	if !ok {
		return
	}
	order, err := h.Svc.Finalize(r.Context(), in)
	if err != nil {
		writeCheckoutError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, order)
}

func writeCheckoutError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, pricing.ErrEmptyCart):
		common.JSONError(w, http.StatusUnprocessableEntity, "CART_EMPTY", err.Error(), nil)
	case errors.Is(err, cart.ErrMalformed):
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
	case errors.Is(err, ErrNoShippingSelected), errors.Is(err, shipping.ErrNoCoverage):
		common.JSONError(w, http.StatusUnprocessableEntity, "NO_COVERAGE", err.Error(), nil)
	case errors.Is(err, shipping.ErrInvalidDestination):
		common.JSONError(w, http.StatusUnprocessableEntity, "INVALID_DESTINATION", err.Error(), nil)
	case errors.Is(err, coupon.ErrGlobalUsageLimitReached), errors.Is(err, coupon.ErrPerCustomerUsageLimitReached):
		common.JSONError(w, http.StatusConflict, "COUPON_REJECTED", err.Error(), nil)
	case errors.Is(err, coupon.ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "COUPON_NOT_FOUND", err.Error(), nil)
	case isCouponRejection(err):
		common.JSONError(w, http.StatusUnprocessableEntity, "COUPON_REJECTED", err.Error(), nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "checkout failed", nil)
	}
}

func isCouponRejection(err error) bool {
	for _, sentinel := range []error{
		coupon.ErrInactive, coupon.ErrOutsideValidityWindow,
		coupon.ErrBelowMinimumAmount, coupon.ErrNotFirstPurchase,
		coupon.ErrCustomerGroupNotAllowed, coupon.ErrNoEligibleItems,
		coupon.ErrNotCombinable,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

func toSnapshot(items []requestItem) (cart.Snapshot, error) {
	snap := cart.Snapshot{Items: make([]cart.Item, 0, len(items))}
	for _, it := range items {
		productID, err := uuid.Parse(it.ProductID)
		if err != nil {
			return cart.Snapshot{}, err
		}
		price, err := decimal.NewFromString(it.UnitPrice)
		if err != nil {
			return cart.Snapshot{}, err
		}
		weight := decimal.Zero
		if strings.TrimSpace(it.WeightKg) != "" {
			weight, err = decimal.NewFromString(it.WeightKg)
			if err != nil {
				return cart.Snapshot{}, err
			}
		}
		item := cart.Item{ProductID: productID, UnitPrice: price, Quantity: it.Quantity, WeightKg: weight}
		if it.CategoryID != nil {
			id, err := uuid.Parse(*it.CategoryID)
			if err != nil {
				return cart.Snapshot{}, err
			}
			item.CategoryID = &id
		}
		if it.BrandID != nil {
			id, err := uuid.Parse(*it.BrandID)
			if err != nil {
				return cart.Snapshot{}, err
			}
			item.BrandID = &id
		}
		snap.Items = append(snap.Items, item)
	}
	return snap, nil
}
