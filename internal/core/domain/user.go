package domain

import (
	"strings"
	"time"
)

type Role string

const (
	RoleCustomer Role = "customer"
	RoleStaff    Role = "staff"
	RoleAdmin    Role = "admin"
)

// User holds the account fields the shop needs. Order statistics change
// only when an order is placed.
type User struct {
	ID            string     `json:"id" bson:"_id"`
	Name          string     `json:"name" bson:"name"`
	Email         string     `json:"email" bson:"email"`
	Phone         string     `json:"phone,omitempty" bson:"phone,omitempty"`
	Role          Role       `json:"role" bson:"role"`
	TotalOrders   int        `json:"totalOrders" bson:"totalOrders"`
	TotalSpent    int64      `json:"totalSpent" bson:"totalSpent"`
	LoyaltyPoints int64      `json:"loyaltyPoints" bson:"loyaltyPoints"`
	LastOrderDate *time.Time `json:"lastOrderDate,omitempty" bson:"lastOrderDate,omitempty"`
	CreatedAt     time.Time  `json:"createdAt" bson:"createdAt"`
}

// OrderStats is the increment applied to a user by one placed order.
type OrderStats struct {
	Orders   int
	Spent    int64
	Points   int64
	LastDate time.Time
}

// StatsFor returns the increment for an order total.
func StatsFor(total int64, at time.Time) OrderStats {
	return OrderStats{Orders: 1, Spent: total, Points: LoyaltyPoints(total), LastDate: at}
}

// Apply adds the increment in place.
func (u *User) Apply(s OrderStats) {
	u.TotalOrders += s.Orders
	u.TotalSpent += s.Spent
	u.LoyaltyPoints += s.Points
	at := s.LastDate
	u.LastOrderDate = &at
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (u User) Validate() error {
	const op = "user.Validate"
	if strings.TrimSpace(u.Name) == "" {
		return Invalid(op, "name is required")
	}
	if !strings.Contains(u.Email, "@") {
		return Invalid(op, "a valid email is required")
	}
	switch u.Role {
	case RoleCustomer, RoleAdmin, RoleStaff:
	default:
		return Invalid(op, "unknown role "+string(u.Role))
	}
	return nil
}
