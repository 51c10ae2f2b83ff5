package domain

import (
	"math"
	"time"
)

const (
	MinRating        = 1
	MaxRating        = 5
	MaxTitleLength   = 100
	MaxCommentLength = 1000
)

type Helpful struct {
	Count int      `json:"count" bson:"count"`
	Users []string `json:"users" bson:"users"`
}

type Review struct {
	ID                 string    `json:"id" bson:"_id"`
	ProductID          string    `json:"productId" bson:"productId"`
	UserID             string    `json:"userId" bson:"userId"`
	OrderID            string    `json:"orderId,omitempty" bson:"orderId,omitempty"`
	Rating             int       `json:"rating" bson:"rating"`
	Title              string    `json:"title,omitempty" bson:"title,omitempty"`
	Comment            string    `json:"comment,omitempty" bson:"comment,omitempty"`
	IsVerifiedPurchase bool      `json:"isVerifiedPurchase" bson:"isVerifiedPurchase"`
	Helpful            Helpful   `json:"helpful" bson:"helpful"`
	IsVisible          bool      `json:"isVisible" bson:"isVisible"`
	CreatedAt          time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt" bson:"updatedAt"`
}

func (r Review) Clone() Review {
	out := r
	out.Helpful.Users = append([]string(nil), r.Helpful.Users...)
	return out
}

func ValidRating(rating int) bool {
	return rating >= MinRating && rating <= MaxRating
}

// ToggleHelpful adds or withdraws the user's vote and returns the new count.
func (r *Review) ToggleHelpful(userID string) int {
	for i, u := range r.Helpful.Users {
		if u == userID {
			r.Helpful.Users = append(r.Helpful.Users[:i], r.Helpful.Users[i+1:]...)
			r.Helpful.Count = max(0, r.Helpful.Count-1)
			return r.Helpful.Count
		}
	}
	r.Helpful.Users = append(r.Helpful.Users, userID)
	r.Helpful.Count++
	return r.Helpful.Count
}

// AggregateRating averages the given ratings, rounded to one decimal.
// No ratings yields the zero Rating.
func AggregateRating(ratings []int) Rating {
	if len(ratings) == 0 {
		return Rating{}
	}
	sum := 0
	for _, r := range ratings {
		sum += r
	}
	avg := float64(sum) / float64(len(ratings))
	return Rating{Average: math.Round(avg*10) / 10, Count: len(ratings)}
}

// ReviewSort orders review listings.
type ReviewSort string

const (
	ReviewSortCreatedAt ReviewSort = "createdAt"
	ReviewSortRating    ReviewSort = "rating"
)

type ReviewFilter struct {
	ProductID   string
	VisibleOnly bool
	SortBy      ReviewSort
	Ascending   bool
	Page        Page
}

func (f ReviewFilter) Less(a, b Review) bool {
	var less, equal bool
	if f.SortBy == ReviewSortRating {
		less, equal = a.Rating < b.Rating, a.Rating == b.Rating
	} else {
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

// Breakdown counts ratings per star value.
func Breakdown(ratings []int) map[int]int {
	out := make(map[int]int)
	for _, r := range ratings {
		out[r]++
	}
	return out
}
