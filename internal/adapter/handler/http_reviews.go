package handler

import (
	"net/http"

	"github.com/Morsalin012/sushi-cafe-web/internal/core/domain"
	"github.com/Morsalin012/sushi-cafe-web/internal/core/service"
)

type reviewRequest struct {
	UserID    string  `json:"userId"`
	ProductID string  `json:"productId"`
	OrderID   string  `json:"orderId"`
	Rating    int     `json:"rating"`
	Title     *string `json:"title"`
	Comment   *string `json:"comment"`
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (h *HTTPHandler) ListProductReviews(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	out, err := h.svc.Reviews.ListForProduct(r.Context(), r.PathValue("productId"),
		domain.ReviewSort(q.Get("sortBy")), q.Get("order") == "asc", queryPage(r, service.ReviewsPageLimit))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *HTTPHandler) CreateReview(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	review, err := h.svc.Reviews.Create(r.Context(), service.CreateReviewInput{
		UserID:    req.UserID,
		ProductID: req.ProductID,
		OrderID:   req.OrderID,
		Rating:    req.Rating,
		Title:     deref(req.Title),
		Comment:   deref(req.Comment),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, struct {
		Message string         `json:"message"`
		Review  *domain.Review `json:"review"`
	}{"Review submitted successfully", review})
}

func (h *HTTPHandler) UpdateReview(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	review, err := h.svc.Reviews.Update(r.Context(), r.PathValue("id"), service.UpdateReviewInput{
		UserID:  req.UserID,
		Rating:  req.Rating,
		Title:   req.Title,
		Comment: req.Comment,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, review)
}

func (h *HTTPHandler) DeleteReview(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	if err := decodeOptional(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if req.UserID == "" {
		req.UserID = r.URL.Query().Get("userId")
	}
	if err := h.svc.Reviews.Delete(r.Context(), r.PathValue("id"), req.UserID); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Review deleted successfully")
}

func (h *HTTPHandler) ToggleHelpful(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	count, err := h.svc.Reviews.ToggleHelpful(r.Context(), r.PathValue("id"), req.UserID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"helpfulCount": count})
}

func (h *HTTPHandler) SetReviewVisibility(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IsVisible *bool `json:"isVisible"`
	}
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if req.IsVisible == nil {
		h.writeError(w, r, domain.Invalid("http.visibility", "isVisible is required"))
		return
	}
	review, err := h.svc.Reviews.SetVisibility(r.Context(), r.PathValue("id"), *req.IsVisible)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, review)
}
