package domain

import (
	"strings"
	"time"
)

type Category string

const (
	CategorySushi    Category = "Sushi"
	CategoryRolls    Category = "Rolls"
	CategoryCoffee   Category = "Coffee"
	CategoryDesserts Category = "Desserts"
	CategoryDrinks   Category = "Drinks"
	CategorySpecials Category = "Specials"
)

var categories = []Category{
	CategorySushi, CategoryRolls, CategoryCoffee,
	CategoryDesserts, CategoryDrinks, CategorySpecials,
}

func (c Category) Valid() bool {
	for _, known := range categories {
		if c == known {
			return true
		}
	}
	return false
}

const DefaultPreparationTime = 15 // minutes

type Rating struct {
	Average float64 `json:"average" bson:"average"`
	Count   int     `json:"count" bson:"count"`
}

type Product struct {
	ID              string    `json:"id" bson:"_id"`
	Name            string    `json:"name" bson:"name"`
	Description     string    `json:"description" bson:"description"`
	Category        Category  `json:"category" bson:"category"`
	Price           int64     `json:"price" bson:"price"`
	Stock           int       `json:"stock" bson:"stock"`
	IsAvailable     bool      `json:"isAvailable" bson:"isAvailable"`
	Image           string    `json:"image,omitempty" bson:"image,omitempty"`
	Tags            []string  `json:"tags,omitempty" bson:"tags,omitempty"`
	PreparationTime int       `json:"preparationTime" bson:"preparationTime"`
	IsVegetarian    bool      `json:"isVegetarian" bson:"isVegetarian"`
	IsSpicy         bool      `json:"isSpicy" bson:"isSpicy"`
	IsFeatured      bool      `json:"isFeatured" bson:"isFeatured"`
	Rating          Rating    `json:"rating" bson:"rating"`
	CreatedAt       time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt" bson:"updatedAt"`
}

// Validate checks the fields an admin edit can break.
func (p Product) Validate() error {
	const op = "product.Validate"
	switch {
	case strings.TrimSpace(p.Name) == "":
		return Invalid(op, "product name is required")
	case strings.TrimSpace(p.Description) == "":
		return Invalid(op, "product description is required")
	case !p.Category.Valid():
		return Invalid(op, "unknown category "+string(p.Category))
	case p.Price < 0:
		return Invalid(op, "price cannot be negative")
	case p.Stock < 0:
		return Invalid(op, "stock cannot be negative")
	}
	return nil
}

// ProductSort names the fields a catalog listing can be ordered by.
type ProductSort string

const (
	SortByCreatedAt ProductSort = "createdAt"
	SortByPrice     ProductSort = "price"
	SortByName      ProductSort = "name"
	SortByRating    ProductSort = "rating"
)

// ProductFilter narrows a catalog listing. Nil pointers mean "any".
type ProductFilter struct {
	Category   Category
	Search     string
	MinPrice   *int64
	MaxPrice   *int64
	Available  *bool
	Vegetarian bool
	Spicy      bool
	Featured   bool
	SortBy     ProductSort
	Ascending  bool
	Page       Page
}

// Match applies the filter to one product; stores without a query engine
// use it directly.
func (f ProductFilter) Match(p Product) bool {
	if f.Category != "" && p.Category != f.Category {
		return false
	}
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(p.Name), q) &&
			!strings.Contains(strings.ToLower(p.Description), q) {
			return false
		}
	}
	if f.MinPrice != nil && p.Price < *f.MinPrice {
		return false
	}
	if f.MaxPrice != nil && p.Price > *f.MaxPrice {
		return false
	}
	if f.Available != nil && p.IsAvailable != *f.Available {
		return false
	}
	if f.Vegetarian && !p.IsVegetarian {
		return false
	}
	if f.Spicy && !p.IsSpicy {
		return false
	}
	if f.Featured && !p.IsFeatured {
		return false
	}
	return true
}

// Less orders two products according to the filter's sort.
func (f ProductFilter) Less(a, b Product) bool {
	var less, equal bool
	switch f.SortBy {
	case SortByPrice:
		less, equal = a.Price < b.Price, a.Price == b.Price
	case SortByName:
		less, equal = a.Name < b.Name, a.Name == b.Name
	case SortByRating:
		less, equal = a.Rating.Average < b.Rating.Average, a.Rating.Average == b.Rating.Average
	default:
		less, equal = a.CreatedAt.Before(b.CreatedAt), a.CreatedAt.Equal(b.CreatedAt)
	}
	if equal {
		return a.ID < b.ID
	}
	if f.Ascending {
		return less
	}
	return !less
}
