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

type CartStore interface {
	port.ProductRepository
	port.CartRepository
}

// CartService mutates carts under the same per-user lock as order
// placement, so a cart cannot change while it is being turned into an order.
type CartService struct {
	store  CartStore
	locker port.Locker
	options
}

func NewCartService(store CartStore, locker port.Locker, opts ...Option) *CartService {
	return &CartService{store: store, locker: locker, options: buildOptions(opts)}
}

func (s *CartService) GetCart(ctx context.Context, userID string) (domain.CartView, error) {
	cart, err := s.store.GetCart(ctx, userID)
	if err != nil {
		return domain.CartView{}, fmt.Errorf("get cart: %w", err)
	}
	if cart == nil {
		cart = domain.NewCart(userID)
	}
	return s.view(ctx, cart)
}

func (s *CartService) view(ctx context.Context, cart *domain.Cart) (domain.CartView, error) {
	products, err := s.store.GetProducts(ctx, cart.ProductIDs())
	if err != nil {
		return domain.CartView{}, fmt.Errorf("get products: %w", err)
	}
	return domain.BuildCartView(cart, products), nil
}

func requireIDs(op string, userID, productID string) error {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(productID) == "" {
		return domain.Invalid(op, "user ID and product ID are required")
	}
	return nil
}

// AddItem merges quantity into the product's line, creating the cart when
// needed. Stock is checked against the resulting line quantity.
func (s *CartService) AddItem(ctx context.Context, userID, productID string, quantity int, instructions string) (_ domain.CartView, err error) {
	const op = "cart.Add"
	ctx, span := tracer.Start(ctx, "CartService.AddItem", trace.WithAttributes(
		attribute.String("user.id", userID), attribute.String("product.id", productID)))
	defer func() { endSpan(span, err) }()

	if err := requireIDs(op, userID, productID); err != nil {
		return domain.CartView{}, err
	}
	if quantity < 1 {
		return domain.CartView{}, domain.Invalid(op, "quantity must be at least 1")
	}
	if len(instructions) > domain.MaxInstructionsLength {
		return domain.CartView{}, domain.Invalid(op, "special instructions are too long")
	}

	var view domain.CartView
	err = withLock(ctx, s.locker, userLockKey(userID), func() error {
		product, err := s.store.GetProduct(ctx, productID)
		if err != nil {
			return fmt.Errorf("get product: %w", err)
		}
		if product == nil {
			return domain.NotFound(op, "product", productID)
		}
		if !product.IsAvailable {
			return domain.NewError(op, domain.ErrProductUnavailable, productID, "product is not available")
		}

		cart, err := s.store.GetCart(ctx, userID)
		if err != nil {
			return fmt.Errorf("get cart: %w", err)
		}
		if cart == nil {
			cart = domain.NewCart(userID)
		}

		want := quantity
		if i := cart.Find(productID); i >= 0 {
			want += cart.Items[i].Quantity
		}
		if product.Stock < want {
			return domain.NewError(op, domain.ErrInsufficientStock, productID, "insufficient stock")
		}

		now := s.now()
		cart.Add(productID, quantity, instructions, now)
		cart.LastUpdated = now
		if err := s.store.SaveCart(ctx, cart); err != nil {
			return fmt.Errorf("save cart: %w", err)
		}
		view, err = s.view(ctx, cart)
		return err
	})
	if err != nil {
		return domain.CartView{}, err
	}
	s.log.InfoContext(ctx, "added to cart", "user_id", userID, "product_id", productID, "quantity", quantity)
	return view, nil
}

// UpdateItem sets a line's quantity; zero or less removes the line.
func (s *CartService) UpdateItem(ctx context.Context, userID, productID string, quantity int) (domain.CartView, error) {
	const op = "cart.Update"
	if err := requireIDs(op, userID, productID); err != nil {
		return domain.CartView{}, err
	}

	var view domain.CartView
	err := withLock(ctx, s.locker, userLockKey(userID), func() error {
		cart, err := s.store.GetCart(ctx, userID)
		if err != nil {
			return fmt.Errorf("get cart: %w", err)
		}
		if cart == nil {
			return domain.NotFound(op, "cart", userID)
		}
		if cart.Find(productID) < 0 {
			return domain.NotFound(op, "item in cart", productID)
		}

		if quantity > 0 {
			product, err := s.store.GetProduct(ctx, productID)
			if err != nil {
				return fmt.Errorf("get product: %w", err)
			}
			if product == nil || product.Stock < quantity {
				return domain.NewError(op, domain.ErrInsufficientStock, productID, "insufficient stock")
			}
		}

		cart.SetQuantity(productID, quantity)
		cart.LastUpdated = s.now()
		if err := s.store.SaveCart(ctx, cart); err != nil {
			return fmt.Errorf("save cart: %w", err)
		}
		view, err = s.view(ctx, cart)
		return err
	})
	return view, err
}

func (s *CartService) RemoveItem(ctx context.Context, userID, productID string) (domain.CartView, error) {
	const op = "cart.Remove"
	if err := requireIDs(op, userID, productID); err != nil {
		return domain.CartView{}, err
	}

	var view domain.CartView
	err := withLock(ctx, s.locker, userLockKey(userID), func() error {
		cart, err := s.store.GetCart(ctx, userID)
		if err != nil {
			return fmt.Errorf("get cart: %w", err)
		}
		if cart == nil {
			return domain.NotFound(op, "cart", userID)
		}
		cart.Remove(productID)
		cart.LastUpdated = s.now()
		if err := s.store.SaveCart(ctx, cart); err != nil {
			return fmt.Errorf("save cart: %w", err)
		}
		view, err = s.view(ctx, cart)
		return err
	})
	return view, err
}

func (s *CartService) Clear(ctx context.Context, userID string) (domain.CartView, error) {
	const op = "cart.Clear"

	var view domain.CartView
	err := withLock(ctx, s.locker, userLockKey(userID), func() error {
		cart, err := s.store.GetCart(ctx, userID)
		if err != nil {
			return fmt.Errorf("get cart: %w", err)
		}
		if cart == nil {
			return domain.NotFound(op, "cart", userID)
		}
		cart.Clear()
		cart.LastUpdated = s.now()
		if err := s.store.SaveCart(ctx, cart); err != nil {
			return fmt.Errorf("save cart: %w", err)
		}
		view = domain.BuildCartView(cart, nil)
		return nil
	})
	return view, err
}
