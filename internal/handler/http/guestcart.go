package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/guestcart"
	"github.com/utafrali/storefront/internal/service"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/httputil"
	"github.com/utafrali/storefront/pkg/middleware"
	"github.com/utafrali/storefront/pkg/validator"
)

// GuestCartHandler handles HTTP requests for guest cart endpoints.
type GuestCartHandler struct {
	carts  *guestcart.Keyspace
	views  *service.CartViewService
	merges *service.LoginCoordinator
	logger *slog.Logger
}

// NewGuestCartHandler creates a new guest cart HTTP handler.
func NewGuestCartHandler(
	carts *guestcart.Keyspace,
	views *service.CartViewService,
	merges *service.LoginCoordinator,
	logger *slog.Logger,
) *GuestCartHandler {
	return &GuestCartHandler{
		carts:  carts,
		views:  views,
		merges: merges,
		logger: logger,
	}
}

// --- Request DTOs ---

// ProductRequest is the product snapshot cached with a guest cart item.
type ProductRequest struct {
	Name          string          `json:"name" validate:"max=500"`
	Price         decimal.Decimal `json:"price"`
	DiscountPrice decimal.Decimal `json:"discount_price"`
	Images        []string        `json:"images" validate:"max=20"`
	Stock         int             `json:"stock" validate:"gte=0"`
}

// AddItemRequest is the JSON request body for adding an item to the guest cart.
// Quantity defaults to 1 when omitted.
type AddItemRequest struct {
	ProductID string          `json:"product_id" validate:"required,max=200"`
	Quantity  *int            `json:"quantity" validate:"omitempty,min=1,max=10000"`
	Product   *ProductRequest `json:"product"`
}

// UpdateQuantityRequest is the JSON request body for setting an item's
// quantity. Zero removes the item.
type UpdateQuantityRequest struct {
	Quantity *int `json:"quantity" validate:"required,min=0,max=10000"`
}

// CountResponse is the body of GET /count.
type CountResponse struct {
	TotalItems int `json:"total_items"`
}

// MergeResponse is the body of POST /merge.
type MergeResponse struct {
	Scheduled bool `json:"scheduled"`
}

func (p *ProductRequest) snapshot() (*domain.ProductSnapshot, error) {
	if p == nil {
		return nil, nil
	}
	if p.Price.IsNegative() || p.DiscountPrice.IsNegative() {
		return nil, apperrors.InvalidInput("product prices must not be negative")
	}
	return &domain.ProductSnapshot{
		Name:          p.Name,
		Price:         p.Price,
		DiscountPrice: p.DiscountPrice,
		Images:        p.Images,
		Stock:         p.Stock,
	}, nil
}

// --- Handlers ---

// GetCart handles GET /api/v1/guest-cart
func (h *GuestCartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r)
	if !ok {
		return
	}

	cart := store.Read(r.Context())
	if cart == nil {
		cart = domain.NewGuestCart()
	}
	httputil.WriteData(w, http.StatusOK, cart)
}

// ClearCart handles DELETE /api/v1/guest-cart
func (h *GuestCartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r)
	if !ok {
		return
	}

	store.Clear(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// Count handles GET /api/v1/guest-cart/count
func (h *GuestCartHandler) Count(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r)
	if !ok {
		return
	}

	httputil.WriteData(w, http.StatusOK, CountResponse{TotalItems: store.TotalItemCount(r.Context())})
}

// View handles GET /api/v1/guest-cart/view
func (h *GuestCartHandler) View(w http.ResponseWriter, r *http.Request) {
	guestID, ok := guestIDFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, r, apperrors.InvalidInput(middleware.GuestIDHeader+" header is required"), h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, h.views.GuestView(r.Context(), guestID))
}

// MergeItems handles GET /api/v1/guest-cart/merge-items
func (h *GuestCartHandler) MergeItems(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r)
	if !ok {
		return
	}

	httputil.WriteData(w, http.StatusOK, store.ExtractMergeableItems(r.Context()))
}

// AddItem handles POST /api/v1/guest-cart/items
func (h *GuestCartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r)
	if !ok {
		return
	}

	var req AddItemRequest
	if err := validator.DecodeAndValidate(w, r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	snapshot, err := req.Product.snapshot()
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	httputil.WriteData(w, http.StatusOK, store.AddItem(r.Context(), req.ProductID, quantity, snapshot))
}

// UpdateItemQuantity handles PUT /api/v1/guest-cart/items/{productId}
func (h *GuestCartHandler) UpdateItemQuantity(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r)
	if !ok {
		return
	}

	productID := chi.URLParam(r, "productId")
	if productID == "" {
		httputil.WriteError(w, r, apperrors.InvalidInput("productId is required"), h.logger)
		return
	}

	var req UpdateQuantityRequest
	if err := validator.DecodeAndValidate(w, r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	httputil.WriteData(w, http.StatusOK, store.UpdateItemQuantity(r.Context(), productID, *req.Quantity))
}

// RemoveItem handles DELETE /api/v1/guest-cart/items/{productId}
func (h *GuestCartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r)
	if !ok {
		return
	}

	productID := chi.URLParam(r, "productId")
	if productID == "" {
		httputil.WriteError(w, r, apperrors.InvalidInput("productId is required"), h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, store.RemoveItem(r.Context(), productID))
}

// Merge handles POST /api/v1/guest-cart/merge. It schedules the guest cart
// to be merged into the cart of the bearer token's owner and answers 202
// without waiting for the merge.
func (h *GuestCartHandler) Merge(w http.ResponseWriter, r *http.Request) {
	guestID, ok := guestIDFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, r, apperrors.InvalidInput(middleware.GuestIDHeader+" header is required"), h.logger)
		return
	}

	token := middleware.BearerTokenFromContext(r.Context())
	if token == "" {
		httputil.WriteError(w, r, apperrors.Unauthorized("bearer token is required"), h.logger)
		return
	}

	if err := h.merges.ScheduleMerge(r.Context(), guestID, token); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusAccepted, MergeResponse{Scheduled: true})
}

// UserCart handles GET /api/v1/cart, proxying the authenticated cart.
func (h *GuestCartHandler) UserCart(w http.ResponseWriter, r *http.Request) {
	token := middleware.BearerTokenFromContext(r.Context())
	if token == "" {
		httputil.WriteError(w, r, apperrors.Unauthorized("bearer token is required"), h.logger)
		return
	}

	cart, err := h.views.UserView(r.Context(), token)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, cart)
}

// --- Helpers ---

func (h *GuestCartHandler) store(w http.ResponseWriter, r *http.Request) (*guestcart.Store, bool) {
	guestID, ok := guestIDFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, r, apperrors.InvalidInput(middleware.GuestIDHeader+" header is required"), h.logger)
		return nil, false
	}
	return h.carts.For(guestID), true
}
