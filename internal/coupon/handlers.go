package coupon

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vitrine-shop/backend-loja/internal/cache"
	"github.com/vitrine-shop/backend-loja/internal/cart"
	"github.com/vitrine-shop/backend-loja/internal/common"
)

// ErrCodeTaken is returned by admin writers when a coupon code collides with
// an existing record.
var ErrCodeTaken = errors.New("coupon code already exists")

// AdminWriter is the write-side surface used by the admin endpoints.
type AdminWriter interface {
	Insert(ctx context.Context, rule Rule) (Rule, error)
	Update(ctx context.Context, rule Rule) (Rule, error)
	SetActive(ctx context.Context, code string, active bool) error
	List(ctx context.Context, limit, offset int) ([]Rule, int, error)
}

// Handler exposes coupon evaluation and administrative endpoints.
type Handler struct {
	Svc      *Service
	Admin    AdminWriter
	Cache    *cache.Cache
	Validate *validator.Validate
}

type applyRequest struct {
	Code        string        `json:"code" validate:"required"`
	AppliedCode string        `json:"appliedCode"`
	Items       []requestItem `json:"items" validate:"required,min=1,dive"`
}

type requestItem struct {
	ProductID  string  `json:"productId" validate:"required,uuid4"`
	UnitPrice  string  `json:"unitPrice" validate:"required"`
	Quantity   int     `json:"quantity" validate:"required,min=1"`
	WeightKg   string  `json:"weightKg"`
	CategoryID *string `json:"categoryId" validate:"omitempty,uuid4"`
	BrandID    *string `json:"brandId" validate:"omitempty,uuid4"`
}

// Apply evaluates a coupon against the submitted cart snapshot. The check is
// provisional: nothing is recorded until the order is finalized.
func (h *Handler) Apply(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "coupon service not configured", nil)
		return
	}
	var req applyRequest
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
	snap, err := toSnapshot(req.Items)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	customerID := customerFromContext(r)
	outcome, err := h.Svc.Evaluate(r.Context(), req.Code, customerID, snap, req.AppliedCode)
	if err != nil {
		status, code := rejectionStatus(err)
		common.JSONError(w, status, code, err.Error(), nil)
		return
	}
	common.JSON(w, http.StatusOK, outcome)
}

// Remove acknowledges clearing an applied coupon. Application is provisional,
// so there is no coupon-side state to undo; the session layer owns the
// applied code and drops it.
func (h *Handler) Remove(w http.ResponseWriter, r *http.Request) {
	code := NormalizeCode(chi.URLParam(r, "code"))
	if code == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "code is required", nil)
		return
	}
	common.JSONMessage(w, http.StatusOK, "coupon removed")
}

type adminPayload struct {
	Code              string     `json:"code" validate:"required"`
	Kind              string     `json:"type" validate:"required,oneof=fixed percentage free_shipping"`
	Value             string     `json:"value" validate:"required"`
	MinimumAmount     *string    `json:"minimumAmount"`
	MaximumDiscount   *string    `json:"maximumDiscount"`
	UsageLimit        *int       `json:"usageLimit"`
	PerCustomerLimit  int        `json:"usagePerCustomer"`
	StartsAt          *time.Time `json:"startsAt"`
	ExpiresAt         *time.Time `json:"expiresAt"`
	Active            *bool      `json:"isActive"`
	FirstPurchaseOnly bool       `json:"firstPurchaseOnly"`
	Combinable        bool       `json:"combineWithOthers"`
	ProductIDs        []string   `json:"productIds" validate:"omitempty,dive,uuid4"`
	CategoryIDs       []string   `json:"categoryIds" validate:"omitempty,dive,uuid4"`
	BrandIDs          []string   `json:"brandIds" validate:"omitempty,dive,uuid4"`
	CustomerGroups    []string   `json:"customerGroups"`
}

// AdminCreate inserts a new coupon record.
func (h *Handler) AdminCreate(w http.ResponseWriter, r *http.Request) {
	if h.Admin == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "coupon admin store not configured", nil)
		return
	}
	var payload adminPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(payload); err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
			return
		}
	}
	rule, err := payloadToRule(payload)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	created, err := h.Admin.Insert(r.Context(), rule)
	if err != nil {
		if errors.Is(err, ErrCodeTaken) {
			common.JSONError(w, http.StatusConflict, "CONFLICT", "coupon code already exists", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to create coupon", nil)
		return
	}
	common.JSON(w, http.StatusCreated, ruleView(created))
}

// AdminUpdate mutates an existing coupon identified by code.
func (h *Handler) AdminUpdate(w http.ResponseWriter, r *http.Request) {
	if h.Admin == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "coupon admin store not configured", nil)
		return
	}
	code := NormalizeCode(chi.URLParam(r, "code"))
	if code == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "code is required", nil)
		return
	}
	var payload adminPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	payload.Code = code
	rule, err := payloadToRule(payload)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	updated, err := h.Admin.Update(r.Context(), rule)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "coupon not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to update coupon", nil)
		return
	}
	_ = h.Cache.Invalidate(r.Context(), cacheKey(code))
	common.JSON(w, http.StatusOK, ruleView(updated))
}

// AdminDeactivate flips a coupon inactive without deleting its usage history.
func (h *Handler) AdminDeactivate(w http.ResponseWriter, r *http.Request) {
	if h.Admin == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "coupon admin store not configured", nil)
		return
	}
	code := NormalizeCode(chi.URLParam(r, "code"))
	if code == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "code is required", nil)
		return
	}
	if err := h.Admin.SetActive(r.Context(), code, false); err != nil {
		if errors.Is(err, ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "coupon not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to deactivate coupon", nil)
		return
	}
	_ = h.Cache.Invalidate(r.Context(), cacheKey(code))
	common.JSONMessage(w, http.StatusOK, "coupon deactivated")
}

// AdminList pages through coupon records.
func (h *Handler) AdminList(w http.ResponseWriter, r *http.Request) {
	if h.Admin == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "coupon admin store not configured", nil)
		return
	}
	page, perPage := common.ParsePagination(r, 20)
	rules, total, err := h.Admin.List(r.Context(), perPage, (page-1)*perPage)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to list coupons", nil)
		return
	}
	views := make([]map[string]any, 0, len(rules))
	for _, rule := range rules {
		views = append(views, ruleView(rule))
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"coupons":    views,
		"pagination": common.Pagination{Page: page, PerPage: perPage, TotalItems: total},
	})
}

func customerFromContext(r *http.Request) *uuid.UUID {
	raw, ok := common.CustomerID(r.Context())
	if !ok {
		return nil
	}
	parsed, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil
	}
	return &parsed
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

func payloadToRule(payload adminPayload) (Rule, error) {
	value, err := decimal.NewFromString(payload.Value)
	if err != nil {
		return Rule{}, errors.New("invalid value")
	}
	kind := Kind(payload.Kind)
	if !value.IsPositive() && kind != KindFreeShipping {
		return Rule{}, errors.New("value must be positive")
	}
	if kind == KindPercentage && value.GreaterThan(decimal.NewFromInt(100)) {
		return Rule{}, errors.New("percentage value must not exceed 100")
	}
	rule := Rule{
		Code:              NormalizeCode(payload.Code),
		Kind:              kind,
		Value:             value,
		PerCustomerLimit:  payload.PerCustomerLimit,
		StartsAt:          payload.StartsAt,
		ExpiresAt:         payload.ExpiresAt,
		Active:            true,
		FirstPurchaseOnly: payload.FirstPurchaseOnly,
		Combinable:        payload.Combinable,
		UsageLimit:        payload.UsageLimit,
		CustomerGroups:    payload.CustomerGroups,
	}
	if payload.Active != nil {
		rule.Active = *payload.Active
	}
	if payload.MinimumAmount != nil {
		min, err := decimal.NewFromString(*payload.MinimumAmount)
		if err != nil {
			return Rule{}, errors.New("invalid minimumAmount")
		}
		rule.MinimumAmount = &min
	}
	if payload.MaximumDiscount != nil {
		max, err := decimal.NewFromString(*payload.MaximumDiscount)
		if err != nil {
			return Rule{}, errors.New("invalid maximumDiscount")
		}
		rule.MaximumDiscount = &max
	}
	if rule.ProductIDs, err = parseUUIDs(payload.ProductIDs); err != nil {
		return Rule{}, err
	}
	if rule.CategoryIDs, err = parseUUIDs(payload.CategoryIDs); err != nil {
		return Rule{}, err
	}
	if rule.BrandIDs, err = parseUUIDs(payload.BrandIDs); err != nil {
		return Rule{}, err
	}
	return rule, nil
}

func parseUUIDs(values []string) ([]uuid.UUID, error) {
	if len(values) == 0 {
		return nil, nil
	}
	out := make([]uuid.UUID, 0, len(values))
	for _, v := range values {
		id, err := uuid.Parse(strings.TrimSpace(v))
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}

func ruleView(r Rule) map[string]any {
	view := map[string]any{
		"id":                r.ID,
		"code":              r.Code,
		"type":              string(r.Kind),
		"value":             r.Value,
		"usagePerCustomer":  r.PerCustomerLimit,
		"usedCount":         r.UsedCount,
		"isActive":          r.Active,
		"firstPurchaseOnly": r.FirstPurchaseOnly,
		"combineWithOthers": r.Combinable,
	}
	if r.MinimumAmount != nil {
		view["minimumAmount"] = *r.MinimumAmount
	}
	if r.MaximumDiscount != nil {
		view["maximumDiscount"] = *r.MaximumDiscount
	}
	if r.UsageLimit != nil {
		view["usageLimit"] = *r.UsageLimit
	}
	if r.StartsAt != nil {
		view["startsAt"] = r.StartsAt
	}
	if r.ExpiresAt != nil {
		view["expiresAt"] = r.ExpiresAt
	}
	return view
}

func rejectionStatus(err error) (int, string) {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound, "COUPON_NOT_FOUND"
	case errors.Is(err, cart.ErrEmpty):
		return http.StatusUnprocessableEntity, "CART_EMPTY"
	case errors.Is(err, cart.ErrMalformed):
		return http.StatusBadRequest, "BAD_REQUEST"
	case errors.Is(err, ErrInactive),
		errors.Is(err, ErrOutsideValidityWindow),
		errors.Is(err, ErrGlobalUsageLimitReached),
		errors.Is(err, ErrPerCustomerUsageLimitReached),
		errors.Is(err, ErrBelowMinimumAmount),
		errors.Is(err, ErrNotFirstPurchase),
		errors.Is(err, ErrCustomerGroupNotAllowed),
		errors.Is(err, ErrNoEligibleItems),
		errors.Is(err, ErrNotCombinable):
		return http.StatusUnprocessableEntity, "COUPON_REJECTED"
	default:
		return http.StatusInternalServerError, "INTERNAL"
	}
}
