package service

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Morsalin012/sushi-cafe-web/internal/core/domain"
	"github.com/Morsalin012/sushi-cafe-web/internal/port"
)

const ReviewsPageLimit = 10

type ReviewStore interface {
	port.ProductRepository
	port.OrderRepository
	port.ReviewRepository
}

// ReviewService keeps each product's rating in step with its visible
// reviews: every write that can change the visible set recomputes it.
type ReviewService struct {
	store  ReviewStore
	locker port.Locker
	options
}

func NewReviewService(store ReviewStore, locker port.Locker, opts ...Option) *ReviewService {
	return &ReviewService{store: store, locker: locker, options: buildOptions(opts)}
}

type CreateReviewInput struct {
	UserID    string
	ProductID string
	OrderID   string
	Rating    int
	Title     string
	Comment   string
}

func validateReviewText(op, title, comment string) error {
	if len(title) > domain.MaxTitleLength {
		return domain.Invalid(op, "title is too long")
	}
	if len(comment) > domain.MaxCommentLength {
		return domain.Invalid(op, "comment is too long")
	}
	return nil
}

func (s *ReviewService) Create(ctx context.Context, in CreateReviewInput) (_ *domain.Review, err error) {
	const op = "review.Create"
	ctx, span := tracer.Start(ctx, "ReviewService.Create", trace.WithAttributes(
		attribute.String("product.id", in.ProductID), attribute.String("user.id", in.UserID)))
	defer func() { endSpan(span, err) }()

	if strings.TrimSpace(in.UserID) == "" || strings.TrimSpace(in.ProductID) == "" || in.Rating == 0 {
		return nil, domain.Invalid(op, "user ID, product ID, and rating are required")
	}
	if !domain.ValidRating(in.Rating) {
		return nil, domain.Invalid(op, "rating must be between 1 and 5")
	}
	if err := validateReviewText(op, in.Title, in.Comment); err != nil {
		return nil, err
	}

	product, err := s.store.GetProduct(ctx, in.ProductID)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if product == nil {
		return nil, domain.NotFound(op, "product", in.ProductID)
	}

	verified, err := s.store.HasPurchased(ctx, in.UserID, in.ProductID, in.OrderID)
	if err != nil {
		return nil, fmt.Errorf("check purchase: %w", err)
	}

	now := s.now()
	review := domain.Review{
		ID:                 s.newID(),
		ProductID:          in.ProductID,
		UserID:             in.UserID,
		OrderID:            in.OrderID,
		Rating:             in.Rating,
		Title:              strings.TrimSpace(in.Title),
		Comment:            strings.TrimSpace(in.Comment),
		IsVerifiedPurchase: verified,
		Helpful:            domain.Helpful{Users: []string{}},
		IsVisible:          true,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.store.CreateReview(ctx, review); err != nil {
		return nil, err
	}
	if err := s.recompute(ctx, in.ProductID); err != nil {
		return nil, err
	}
	s.log.InfoContext(ctx, "review created", "review_id", review.ID, "product_id", in.ProductID)
	return &review, nil
}

// owned loads a review that belongs to userID. Someone else's review reads
// as not found.
func (s *ReviewService) owned(ctx context.Context, op, reviewID, userID string) (*domain.Review, error) {
	r, err := s.store.GetReview(ctx, reviewID)
	if err != nil {
		return nil, fmt.Errorf("get review: %w", err)
	}
	if r == nil || r.UserID != userID {
		return nil, domain.NewError(op, domain.ErrNotFound, reviewID, "review not found or not authorized")
	}
	return r, nil
}

type UpdateReviewInput struct {
	UserID  string
	Rating  int     // 0 keeps the current rating
	Title   *string // nil keeps the current title
	Comment *string
}

func (s *ReviewService) Update(ctx context.Context, reviewID string, in UpdateReviewInput) (*domain.Review, error) {
	const op = "review.Update"
	r, err := s.owned(ctx, op, reviewID, in.UserID)
	if err != nil {
		return nil, err
	}
	if in.Rating != 0 {
		if !domain.ValidRating(in.Rating) {
			return nil, domain.Invalid(op, "rating must be between 1 and 5")
		}
		r.Rating = in.Rating
	}
	if in.Title != nil {
		r.Title = strings.TrimSpace(*in.Title)
	}
	if in.Comment != nil {
		r.Comment = strings.TrimSpace(*in.Comment)
	}
	if err := validateReviewText(op, r.Title, r.Comment); err != nil {
		return nil, err
	}
	r.UpdatedAt = s.now()
	if err := s.store.UpdateReview(ctx, *r); err != nil {
		return nil, fmt.Errorf("update review: %w", err)
	}
	if err := s.recompute(ctx, r.ProductID); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *ReviewService) Delete(ctx context.Context, reviewID, userID string) error {
	r, err := s.owned(ctx, "review.Delete", reviewID, userID)
	if err != nil {
		return err
	}
	if err := s.store.DeleteReview(ctx, reviewID); err != nil {
		return fmt.Errorf("delete review: %w", err)
	}
	return s.recompute(ctx, r.ProductID)
}

// SetVisibility hides or shows a review (moderation).
func (s *ReviewService) SetVisibility(ctx context.Context, reviewID string, visible bool) (*domain.Review, error) {
	r, err := s.store.GetReview(ctx, reviewID)
	if err != nil {
		return nil, fmt.Errorf("get review: %w", err)
	}
	if r == nil {
		return nil, domain.NotFound("review.SetVisibility", "review", reviewID)
	}
	if r.IsVisible == visible {
		return r, nil
	}
	r.IsVisible = visible
	r.UpdatedAt = s.now()
	if err := s.store.UpdateReview(ctx, *r); err != nil {
		return nil, fmt.Errorf("update review: %w", err)
	}
	if err := s.recompute(ctx, r.ProductID); err != nil {
		return nil, err
	}
	return r, nil
}

// ToggleHelpful adds the user's vote or withdraws it and returns the count.
func (s *ReviewService) ToggleHelpful(ctx context.Context, reviewID, userID string) (int, error) {
	const op = "review.ToggleHelpful"
	if strings.TrimSpace(userID) == "" {
		return 0, domain.Invalid(op, "user ID is required")
	}

	var count int
	err := withLock(ctx, s.locker, "review:"+reviewID, func() error {
		r, err := s.store.GetReview(ctx, reviewID)
		if err != nil {
			return fmt.Errorf("get review: %w", err)
		}
		if r == nil {
			return domain.NotFound(op, "review", reviewID)
		}
		count = r.ToggleHelpful(userID)
		if err := s.store.UpdateReview(ctx, *r); err != nil {
			return fmt.Errorf("update review: %w", err)
		}
		return nil
	})
	return count, err
}

// ProductReviews is one page of a product's visible reviews.
type ProductReviews struct {
	Reviews         []domain.Review   `json:"reviews"`
	Pagination      domain.Pagination `json:"pagination"`
	RatingBreakdown map[int]int       `json:"ratingBreakdown"`
}

func (s *ReviewService) ListForProduct(ctx context.Context, productID string, sortBy domain.ReviewSort, ascending bool, page domain.Page) (*ProductReviews, error) {
	reviews, total, err := s.store.ListReviews(ctx, domain.ReviewFilter{
		ProductID:   productID,
		VisibleOnly: true,
		SortBy:      sortBy,
		Ascending:   ascending,
		Page:        page,
	})
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	ratings, err := s.store.VisibleRatings(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("visible ratings: %w", err)
	}
	return &ProductReviews{
		Reviews:         reviews,
		Pagination:      domain.NewPagination(page, total),
		RatingBreakdown: domain.Breakdown(ratings),
	}, nil
}

// recompute rewrites the product's aggregate rating from its visible
// reviews, one recompute per product at a time.
func (s *ReviewService) recompute(ctx context.Context, productID string) error {
	return withLock(ctx, s.locker, ratingLockKey(productID), func() error {
		ratings, err := s.store.VisibleRatings(ctx, productID)
		if err != nil {
			return fmt.Errorf("visible ratings: %w", err)
		}
		rating := domain.AggregateRating(ratings)
		if err := s.store.SetProductRating(ctx, productID, rating); err != nil {
			return fmt.Errorf("set product rating: %w", err)
		}
		s.log.DebugContext(ctx, "product rating updated", "product_id", productID,
			"average", rating.Average, "count", rating.Count)
		return nil
	})
}
