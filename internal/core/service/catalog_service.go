package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/Morsalin012/sushi-cafe-web/internal/core/domain"
	"github.com/Morsalin012/sushi-cafe-web/internal/port"
)

type CatalogService struct {
	store port.ProductRepository
	options
}

func NewCatalogService(store port.ProductRepository, opts ...Option) *CatalogService {
	return &CatalogService{store: store, options: buildOptions(opts)}
}

func (s *CatalogService) List(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, domain.Pagination, error) {
	if filter.MinPrice != nil && filter.MaxPrice != nil && *filter.MinPrice > *filter.MaxPrice {
		return nil, domain.Pagination{}, domain.Invalid("catalog.List", "minPrice cannot exceed maxPrice")
	}
	products, total, err := s.store.ListProducts(ctx, filter)
	if err != nil {
		return nil, domain.Pagination{}, fmt.Errorf("list products: %w", err)
	}
	return products, domain.NewPagination(filter.Page, total), nil
}

func (s *CatalogService) Get(ctx context.Context, id string) (*domain.Product, error) {
	p, err := s.store.GetProduct(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if p == nil {
		return nil, domain.NotFound("catalog.Get", "product", id)
	}
	return p, nil
}

// Create stores a new menu item. Rating is always derived from reviews and
// starts empty.
func (s *CatalogService) Create(ctx context.Context, p domain.Product) (*domain.Product, error) {
	p.Name = strings.TrimSpace(p.Name)
	p.Description = strings.TrimSpace(p.Description)
	if err := p.Validate(); err != nil {
		return nil, err
	}
	now := s.now()
	p.ID = s.newID()
	p.Rating = domain.Rating{}
	if p.PreparationTime <= 0 {
		p.PreparationTime = domain.DefaultPreparationTime
	}
	p.CreatedAt, p.UpdatedAt = now, now
	if err := s.store.SaveProduct(ctx, p); err != nil {
		return nil, fmt.Errorf("save product: %w", err)
	}
	s.log.InfoContext(ctx, "created product", "product_id", p.ID, "name", p.Name)
	return &p, nil
}

// ProductPatch holds the fields an update may change; nil leaves a field as is.
type ProductPatch struct {
	Name            *string          `json:"name"`
	Description     *string          `json:"description"`
	Category        *domain.Category `json:"category"`
	Price           *int64           `json:"price"`
	Stock           *int             `json:"stock"`
	IsAvailable     *bool            `json:"isAvailable"`
	Image           *string          `json:"image"`
	Tags            []string         `json:"tags"`
	PreparationTime *int             `json:"preparationTime"`
	IsVegetarian    *bool            `json:"isVegetarian"`
	IsSpicy         *bool            `json:"isSpicy"`
	IsFeatured      *bool            `json:"isFeatured"`
}

func (patch ProductPatch) apply(p *domain.Product) {
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = strings.TrimSpace(*v)
		}
	}
	setBool := func(dst *bool, v *bool) {
		if v != nil {
			*dst = *v
		}
	}
	set(&p.Name, patch.Name)
	set(&p.Description, patch.Description)
	set(&p.Image, patch.Image)
	if patch.Category != nil {
		p.Category = *patch.Category
	}
	if patch.Price != nil {
		p.Price = *patch.Price
	}
	if patch.Stock != nil {
		p.Stock = *patch.Stock
	}
	if patch.Tags != nil {
		p.Tags = patch.Tags
	}
	if patch.PreparationTime != nil {
		p.PreparationTime = *patch.PreparationTime
	}
	setBool(&p.IsAvailable, patch.IsAvailable)
	setBool(&p.IsVegetarian, patch.IsVegetarian)
	setBool(&p.IsSpicy, patch.IsSpicy)
	setBool(&p.IsFeatured, patch.IsFeatured)
}

// Update applies an admin edit. Setting stock here overwrites it, so it is
// meant for restocking, not for order flows.
func (s *CatalogService) Update(ctx context.Context, id string, patch ProductPatch) (*domain.Product, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	patch.apply(p)
	if err := p.Validate(); err != nil {
		return nil, err
	}
	p.UpdatedAt = s.now()
	if err := s.store.SaveProduct(ctx, *p); err != nil {
		return nil, fmt.Errorf("save product: %w", err)
	}
	return p, nil
}

// Seed loads the default menu into an empty catalog and reports how many
// products it added.
func (s *CatalogService) Seed(ctx context.Context) (int, error) {
	_, total, err := s.store.ListProducts(ctx, domain.ProductFilter{Page: domain.Page{Number: 1, Limit: 1}})
	if err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	if total > 0 {
		return 0, nil
	}
	for _, p := range defaultMenu() {
		if _, err := s.Create(ctx, p); err != nil {
			return 0, fmt.Errorf("seed %s: %w", p.Name, err)
		}
	}
	n := len(defaultMenu())
	s.log.InfoContext(ctx, "seeded menu", "products", n)
	return n, nil
}
