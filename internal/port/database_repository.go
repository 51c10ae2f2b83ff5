package port

import (
	"context"

	"github.com/Morsalin012/sushi-cafe-web/internal/core/domain"
)

// Get* methods return (nil, nil) when the record does not exist.

type ProductRepository interface {
	GetProduct(ctx context.Context, id string) (*domain.Product, error)

	// GetProducts returns the products found among ids, keyed by id
	GetProducts(ctx context.Context, ids []string) (map[string]domain.Product, error)

	// ListProducts returns one page of matches and the total match count
	ListProducts(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, int, error)

	// SaveProduct inserts or replaces a product
	SaveProduct(ctx context.Context, product domain.Product) error

	// DecrementStock atomically decreases stock, returns false if insufficient or missing
	DecrementStock(ctx context.Context, productID string, quantity int) (bool, error)

	// IncrementStock restores stock (cancellation and rollback)
	IncrementStock(ctx context.Context, productID string, quantity int) error

	SetProductRating(ctx context.Context, productID string, rating domain.Rating) error
}

type CartRepository interface {
	GetCart(ctx context.Context, userID string) (*domain.Cart, error)
	SaveCart(ctx context.Context, cart *domain.Cart) error
}

type OrderRepository interface {
	// CreateOrder persists an order without touching stock, returns domain.ErrDuplicate on a reused order number
	CreateOrder(ctx context.Context, order domain.Order) error

	// DeleteOrder removes an order that was never acknowledged (compensation only)
	DeleteOrder(ctx context.Context, id string) error

	GetOrder(ctx context.Context, id string) (*domain.Order, error)
	GetOrderByNumber(ctx context.Context, orderNumber string) (*domain.Order, error)

	// ListOrders returns newest first, one page, and the total match count
	ListOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, int, error)

	// UpdateOrderStatus writes the order if its stored status still equals from, else domain.ErrConflict
	UpdateOrderStatus(ctx context.Context, order domain.Order, from domain.OrderStatus) error

	// HasPurchased reports a delivered or completed order of the user containing the product
	HasPurchased(ctx context.Context, userID, productID, orderID string) (bool, error)
}

// OrderPlacer is implemented by stores that can insert an order and
// decrement all of its stock lines in a single transaction.
type OrderPlacer interface {
	// PlaceOrder returns domain.ErrInsufficientStock and changes nothing if any line cannot be decremented
	PlaceOrder(ctx context.Context, order domain.Order) error
}

type UserRepository interface {
	// CreateUser returns domain.ErrDuplicate when the email is taken
	CreateUser(ctx context.Context, user domain.User) error
	GetUser(ctx context.Context, id string) (*domain.User, error)

	// RecordOrder atomically adds order statistics, domain.ErrNotFound if the user is missing
	RecordOrder(ctx context.Context, userID string, stats domain.OrderStats) error
}

type ReviewRepository interface {
	// CreateReview returns domain.ErrDuplicate when the user already reviewed the product
	CreateReview(ctx context.Context, review domain.Review) error
	GetReview(ctx context.Context, id string) (*domain.Review, error)
	UpdateReview(ctx context.Context, review domain.Review) error
	DeleteReview(ctx context.Context, id string) error
	ListReviews(ctx context.Context, filter domain.ReviewFilter) ([]domain.Review, int, error)

	// VisibleRatings returns the rating of every visible review of a product
	VisibleRatings(ctx context.Context, productID string) ([]int, error)
}

type ReservationRepository interface {
	// CreateReservation returns domain.ErrDuplicate on a reused confirmation code
	CreateReservation(ctx context.Context, reservation domain.Reservation) error
	GetReservation(ctx context.Context, id string) (*domain.Reservation, error)
	GetReservationByCode(ctx context.Context, code string) (*domain.Reservation, error)

	// UpdateReservation writes the reservation if its stored status still equals from, else domain.ErrConflict
	UpdateReservation(ctx context.Context, reservation domain.Reservation, from domain.ReservationStatus) error

	// ListReservations returns matches ordered by date, newest first
	ListReservations(ctx context.Context, filter domain.ReservationFilter) ([]domain.Reservation, error)
}

// Storage is the full persistence surface selected at startup.
type Storage interface {
	ProductRepository
	CartRepository
	OrderRepository
	UserRepository
	ReviewRepository
	ReservationRepository

	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
