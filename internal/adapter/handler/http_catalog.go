package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/Morsalin012/sushi-cafe-web/internal/core/domain"
	"github.com/Morsalin012/sushi-cafe-web/internal/core/service"
)

type productsResponse struct {
	Products   []domain.Product  `json:"products"`
	Pagination domain.Pagination `json:"pagination"`
}

func productFilter(r *http.Request) (domain.ProductFilter, error) {
	q := r.URL.Query()
	f := domain.ProductFilter{
		Category:   domain.Category(q.Get("category")),
		Search:     strings.TrimSpace(q.Get("search")),
		Vegetarian: queryBool(r, "vegetarian"),
		Spicy:      queryBool(r, "spicy"),
		Featured:   queryBool(r, "featured"),
		SortBy:     domain.ProductSort(q.Get("sortBy")),
		Ascending:  q.Get("order") == "asc",
		Page:       queryPage(r, domain.DefaultPageLimit),
	}
	price := func(key string) (*int64, error) {
		v := q.Get(key)
		if v == "" {
			return nil, nil
		}
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, domain.Invalid("http.products", "invalid "+key)
		}
		return &n, nil
	}
	var err error
	if f.MinPrice, err = price("minPrice"); err != nil {
		return f, err
	}
	if f.MaxPrice, err = price("maxPrice"); err != nil {
		return f, err
	}
	if v := q.Get("available"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return f, domain.Invalid("http.products", "invalid available flag")
		}
		f.Available = &b
	}
	return f, nil
}

func (h *HTTPHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	filter, err := productFilter(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	products, pg, err := h.svc.Catalog.List(r.Context(), filter)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, productsResponse{Products: products, Pagination: pg})
}

func (h *HTTPHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Catalog.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *HTTPHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var p domain.Product
	if err := decode(r, &p); err != nil {
		h.writeError(w, r, err)
		return
	}
	created, err := h.svc.Catalog.Create(r.Context(), p)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *HTTPHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	var patch service.ProductPatch
	if err := decode(r, &patch); err != nil {
		h.writeError(w, r, err)
		return
	}
	p, err := h.svc.Catalog.Update(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type cartItemRequest struct {
	UserID       string `json:"userId"`
	ProductID    string `json:"productId"`
	Quantity     int    `json:"quantity"`
	Instructions string `json:"specialInstructions"`
}

type cartResponse struct {
	Message string          `json:"message"`
	Cart    domain.CartView `json:"cart"`
}

func (h *HTTPHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.Carts.GetCart(r.Context(), r.PathValue("userId"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *HTTPHandler) AddToCart(w http.ResponseWriter, r *http.Request) {
	var req cartItemRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	view, err := h.svc.Carts.AddItem(r.Context(), req.UserID, req.ProductID, req.Quantity, req.Instructions)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cartResponse{Message: "Item added to cart", Cart: view})
}

func (h *HTTPHandler) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	var req cartItemRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	view, err := h.svc.Carts.UpdateItem(r.Context(), req.UserID, req.ProductID, req.Quantity)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cartResponse{Message: "Cart updated", Cart: view})
}

// RemoveFromCart reads the line from the body, falling back to the query.
func (h *HTTPHandler) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	var req cartItemRequest
	if err := decodeOptional(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if req.UserID == "" {
		req.UserID = r.URL.Query().Get("userId")
	}
	if req.ProductID == "" {
		req.ProductID = r.URL.Query().Get("productId")
	}
	view, err := h.svc.Carts.RemoveItem(r.Context(), req.UserID, req.ProductID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cartResponse{Message: "Item removed from cart", Cart: view})
}

func (h *HTTPHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.Carts.Clear(r.Context(), r.PathValue("userId"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cartResponse{Message: "Cart cleared", Cart: view})
}

type createUserRequest struct {
	Name  string      `json:"name"`
	Email string      `json:"email"`
	Phone string      `json:"phone"`
	Role  domain.Role `json:"role"`
}

func (h *HTTPHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	u, err := h.svc.Users.Create(r.Context(), req.Name, req.Email, req.Phone, req.Role)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

func (h *HTTPHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	u, err := h.svc.Users.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}
