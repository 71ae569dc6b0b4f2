package shipping

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
)

// Handler exposes the shipping quote endpoint.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
}

type quoteRequest struct {
	DestinationCEP string      `json:"destinationCep" validate:"required"`
	Items          []quoteItem `json:"items" validate:"required,min=1,dive"`
}

type quoteItem struct {
	ProductID string `json:"productId" validate:"required,uuid4"`
	UnitPrice string `json:"unitPrice" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
	WeightKg  string `json:"weightKg"`
}

// QuoteRates prices every covering method for the submitted cart.
func (h *Handler) QuoteRates(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "shipping service not configured", nil)
		return
	}
	var req quoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(req); err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
			return
		}
	}
	snap, err := itemsToSnapshot(req.Items)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	quote, err := h.Svc.Quote(r.Context(), req.DestinationCEP, snap)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidDestination):
			common.JSONError(w, http.StatusUnprocessableEntity, "INVALID_DESTINATION", "destination postal code is invalid", nil)
		case errors.Is(err, ErrNoCoverage):
			common.JSONError(w, http.StatusUnprocessableEntity, "NO_COVERAGE", "no shipping method covers this destination", nil)
		case errors.Is(err, cart.ErrMalformed):
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		default:
			common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to quote shipping", nil)
		}
		return
	}
	common.JSON(w, http.StatusOK, quote)
}

func itemsToSnapshot(items []quoteItem) (cart.Snapshot, error) {
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
		snap.Items = append(snap.Items, cart.Item{
			ProductID: productID,
			UnitPrice: price,
			Quantity:  it.Quantity,
			WeightKg:  weight,
		})
	}
	return snap, nil
}
