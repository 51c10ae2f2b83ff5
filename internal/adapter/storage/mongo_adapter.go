package storage

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Morsalin012/sushi-cafe-web/internal/core/domain"
)

const (
	productsCollection     = "products"
	cartsCollection        = "carts"
	ordersCollection       = "orders"
	usersCollection        = "users"
	reviewsCollection      = "reviews"
	reservationsCollection = "reservations"
)

// MongoAdapter stores every record as a document. It has no multi-document
// transaction path, so order placement runs through the service saga.
type MongoAdapter struct {
	client *mongo.Client
	db     *mongo.Database
}

func NewMongoAdapter(client *mongo.Client, database string) *MongoAdapter {
	return &MongoAdapter{client: client, db: client.Database(database)}
}

// ConnectMongo dials and pings the server.
func ConnectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return client, nil
}

// EnsureIndexes creates the unique indexes the duplicate checks rely on.
func (m *MongoAdapter) EnsureIndexes(ctx context.Context) error {
	unique := options.Index().SetUnique(true)
	indexes := map[string][]mongo.IndexModel{
		ordersCollection: {
			{Keys: bson.D{{Key: "orderNumber", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
		usersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: unique},
		},
		reviewsCollection: {
			{Keys: bson.D{{Key: "productId", Value: 1}, {Key: "userId", Value: 1}}, Options: unique},
		},
		reservationsCollection: {
			{Keys: bson.D{{Key: "confirmationCode", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "date", Value: 1}, {Key: "time", Value: 1}}},
		},
		productsCollection: {
			{Keys: bson.D{{Key: "category", Value: 1}}},
		},
	}
	for coll, models := range indexes {
		if _, err := m.db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create %s indexes: %w", coll, err)
		}
	}
	return nil
}

func (m *MongoAdapter) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, nil)
}

func (m *MongoAdapter) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

func (m *MongoAdapter) coll(name string) *mongo.Collection {
	return m.db.Collection(name)
}

func findOne[T any](ctx context.Context, coll *mongo.Collection, filter any) (*T, error) {
	var out T
	err := coll.FindOne(ctx, filter).Decode(&out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", coll.Name(), err)
	}
	return &out, nil
}

func findAll[T any](ctx context.Context, coll *mongo.Collection, filter any, opts *options.FindOptions) ([]T, error) {
	cur, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", coll.Name(), err)
	}
	out := []T{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", coll.Name(), err)
	}
	return out, nil
}

func sortDir(ascending bool) int {
	if ascending {
		return 1
	}
	return -1
}

func pageOptions(p domain.Page, sort bson.D) *options.FindOptions {
	opts := options.Find().SetSort(sort)
	if p.Limit > 0 {
		opts.SetSkip(int64(p.Offset())).SetLimit(int64(p.Limit))
	}
	return opts
}

// --- products ---

func (m *MongoAdapter) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	return findOne[domain.Product](ctx, m.coll(productsCollection), bson.M{"_id": id})
}

func (m *MongoAdapter) GetProducts(ctx context.Context, ids []string) (map[string]domain.Product, error) {
	out := make(map[string]domain.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	products, err := findAll[domain.Product](ctx, m.coll(productsCollection), bson.M{"_id": bson.M{"$in": ids}}, nil)
	if err != nil {
		return nil, err
	}
	for _, p := range products {
		out[p.ID] = p
	}
	return out, nil
}

func productQuery(f domain.ProductFilter) bson.M {
	q := bson.M{}
	if f.Category != "" {
		q["category"] = f.Category
	}
	if f.Search != "" {
		pattern := bson.M{"$regex": regexp.QuoteMeta(f.Search), "$options": "i"}
		q["$or"] = bson.A{bson.M{"name": pattern}, bson.M{"description": pattern}}
	}
	if f.MinPrice != nil || f.MaxPrice != nil {
		price := bson.M{}
		if f.MinPrice != nil {
			price["$gte"] = *f.MinPrice
		}
		if f.MaxPrice != nil {
			price["$lte"] = *f.MaxPrice
		}
		q["price"] = price
	}
	if f.Available != nil {
		q["isAvailable"] = *f.Available
	}
	if f.Vegetarian {
		q["isVegetarian"] = true
	}
	if f.Spicy {
		q["isSpicy"] = true
	}
	if f.Featured {
		q["isFeatured"] = true
	}
	return q
}

func (m *MongoAdapter) ListProducts(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, int, error) {
	q := productQuery(filter)
	total, err := m.coll(productsCollection).CountDocuments(ctx, q)
	if err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	field := "createdAt"
	switch filter.SortBy {
	case domain.SortByPrice:
		field = "price"
	case domain.SortByName:
		field = "name"
	case domain.SortByRating:
		field = "rating.average"
	}
	dir := sortDir(filter.Ascending)
	products, err := findAll[domain.Product](ctx, m.coll(productsCollection), q,
		pageOptions(filter.Page, bson.D{{Key: field, Value: dir}, {Key: "_id", Value: dir}}))
	if err != nil {
		return nil, 0, err
	}
	return products, int(total), nil
}

func (m *MongoAdapter) SaveProduct(ctx context.Context, product domain.Product) error {
	_, err := m.coll(productsCollection).ReplaceOne(ctx, bson.M{"_id": product.ID}, product,
		options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("save product: %w", err)
	}
	return nil
}

func (m *MongoAdapter) DecrementStock(ctx context.Context, productID string, quantity int) (bool, error) {
	res, err := m.coll(productsCollection).UpdateOne(ctx,
		bson.M{"_id": productID, "stock": bson.M{"$gte": quantity}},
		bson.M{"$inc": bson.M{"stock": -quantity}, "$set": bson.M{"updatedAt": time.Now().UTC()}},
	)
	if err != nil {
		return false, fmt.Errorf("decrement stock: %w", err)
	}
	return res.MatchedCount == 1, nil
}

func (m *MongoAdapter) IncrementStock(ctx context.Context, productID string, quantity int) error {
	res, err := m.coll(productsCollection).UpdateOne(ctx,
		bson.M{"_id": productID},
		bson.M{"$inc": bson.M{"stock": quantity}, "$set": bson.M{"updatedAt": time.Now().UTC()}},
	)
	if err != nil {
		return fmt.Errorf("increment stock: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.NotFound("mongo.IncrementStock", "product", productID)
	}
	return nil
}

func (m *MongoAdapter) SetProductRating(ctx context.Context, productID string, rating domain.Rating) error {
	res, err := m.coll(productsCollection).UpdateOne(ctx,
		bson.M{"_id": productID}, bson.M{"$set": bson.M{"rating": rating}})
	if err != nil {
		return fmt.Errorf("set rating: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.NotFound("mongo.SetProductRating", "product", productID)
	}
	return nil
}

// --- carts ---

func (m *MongoAdapter) GetCart(ctx context.Context, userID string) (*domain.Cart, error) {
	cart, err := findOne[domain.Cart](ctx, m.coll(cartsCollection), bson.M{"_id": userID})
	if cart != nil && cart.Items == nil {
		cart.Items = []domain.CartItem{}
	}
	return cart, err
}

func (m *MongoAdapter) SaveCart(ctx context.Context, cart *domain.Cart) error {
	_, err := m.coll(cartsCollection).ReplaceOne(ctx, bson.M{"_id": cart.UserID}, cart,
		options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}

// --- orders ---

func (m *MongoAdapter) CreateOrder(ctx context.Context, order domain.Order) error {
	_, err := m.coll(ordersCollection).InsertOne(ctx, order)
	if mongo.IsDuplicateKeyError(err) {
		return domain.NewError("mongo.CreateOrder", domain.ErrDuplicate, order.OrderNumber, "order number already exists")
	}
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (m *MongoAdapter) DeleteOrder(ctx context.Context, id string) error {
	if _, err := m.coll(ordersCollection).DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	return nil
}

func (m *MongoAdapter) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	return findOne[domain.Order](ctx, m.coll(ordersCollection), bson.M{"_id": id})
}

func (m *MongoAdapter) GetOrderByNumber(ctx context.Context, orderNumber string) (*domain.Order, error) {
	return findOne[domain.Order](ctx, m.coll(ordersCollection), bson.M{"orderNumber": orderNumber})
}

func (m *MongoAdapter) ListOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, int, error) {
	q := bson.M{}
	if filter.UserID != "" {
		q["userId"] = filter.UserID
	}
	if filter.Status != "" {
		q["status"] = filter.Status
	}
	total, err := m.coll(ordersCollection).CountDocuments(ctx, q)
	if err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}
	orders, err := findAll[domain.Order](ctx, m.coll(ordersCollection), q,
		pageOptions(filter.Page, bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}))
	if err != nil {
		return nil, 0, err
	}
	return orders, int(total), nil
}

func (m *MongoAdapter) UpdateOrderStatus(ctx context.Context, order domain.Order, from domain.OrderStatus) error {
	res, err := m.coll(ordersCollection).ReplaceOne(ctx, bson.M{"_id": order.ID, "status": from}, order)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.NewError("mongo.UpdateOrderStatus", domain.ErrConflict, order.ID, "")
	}
	return nil
}

func (m *MongoAdapter) HasPurchased(ctx context.Context, userID, productID, orderID string) (bool, error) {
	q := bson.M{
		"userId":          userID,
		"items.productId": productID,
		"status":          bson.M{"$in": bson.A{domain.OrderStatusDelivered, domain.OrderStatusCompleted}},
	}
	if orderID != "" {
		q["_id"] = orderID
	}
	n, err := m.coll(ordersCollection).CountDocuments(ctx, q, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("count purchases: %w", err)
	}
	return n > 0, nil
}

// --- users ---

func (m *MongoAdapter) CreateUser(ctx context.Context, user domain.User) error {
	_, err := m.coll(usersCollection).InsertOne(ctx, user)
	if mongo.IsDuplicateKeyError(err) {
		return domain.NewError("mongo.CreateUser", domain.ErrDuplicate, user.Email, "email already registered")
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (m *MongoAdapter) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return findOne[domain.User](ctx, m.coll(usersCollection), bson.M{"_id": id})
}

func (m *MongoAdapter) RecordOrder(ctx context.Context, userID string, s domain.OrderStats) error {
	res, err := m.coll(usersCollection).UpdateOne(ctx, bson.M{"_id": userID}, bson.M{
		"$inc": bson.M{"totalOrders": s.Orders, "totalSpent": s.Spent, "loyaltyPoints": s.Points},
		"$set": bson.M{"lastOrderDate": s.LastDate},
	})
	if err != nil {
		return fmt.Errorf("record order: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.NotFound("mongo.RecordOrder", "user", userID)
	}
	return nil
}

// --- reviews ---

func (m *MongoAdapter) CreateReview(ctx context.Context, review domain.Review) error {
	_, err := m.coll(reviewsCollection).InsertOne(ctx, review)
	if mongo.IsDuplicateKeyError(err) {
		return domain.NewError("mongo.CreateReview", domain.ErrDuplicate, review.ProductID, "you have already reviewed this product")
	}
	if err != nil {
		return fmt.Errorf("insert review: %w", err)
	}
	return nil
}

func (m *MongoAdapter) GetReview(ctx context.Context, id string) (*domain.Review, error) {
	return findOne[domain.Review](ctx, m.coll(reviewsCollection), bson.M{"_id": id})
}

func (m *MongoAdapter) UpdateReview(ctx context.Context, review domain.Review) error {
	_, err := m.coll(reviewsCollection).ReplaceOne(ctx, bson.M{"_id": review.ID}, review)
	if err != nil {
		return fmt.Errorf("update review: %w", err)
	}
	return nil
}

func (m *MongoAdapter) DeleteReview(ctx context.Context, id string) error {
	if _, err := m.coll(reviewsCollection).DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("delete review: %w", err)
	}
	return nil
}

func (m *MongoAdapter) ListReviews(ctx context.Context, filter domain.ReviewFilter) ([]domain.Review, int, error) {
	q := bson.M{}
	if filter.ProductID != "" {
		q["productId"] = filter.ProductID
	}
	if filter.VisibleOnly {
		q["isVisible"] = true
	}
	total, err := m.coll(reviewsCollection).CountDocuments(ctx, q)
	if err != nil {
		return nil, 0, fmt.Errorf("count reviews: %w", err)
	}
	field := "createdAt"
	if filter.SortBy == domain.ReviewSortRating {
		field = "rating"
	}
	dir := sortDir(filter.Ascending)
	reviews, err := findAll[domain.Review](ctx, m.coll(reviewsCollection), q,
		pageOptions(filter.Page, bson.D{{Key: field, Value: dir}, {Key: "_id", Value: dir}}))
	if err != nil {
		return nil, 0, err
	}
	return reviews, int(total), nil
}

func (m *MongoAdapter) VisibleRatings(ctx context.Context, productID string) ([]int, error) {
	type ratingDoc struct {
		Rating int `bson:"rating"`
	}
	docs, err := findAll[ratingDoc](ctx, m.coll(reviewsCollection),
		bson.M{"productId": productID, "isVisible": true},
		options.Find().SetProjection(bson.M{"rating": 1}))
	if err != nil {
		return nil, err
	}
	ratings := make([]int, 0, len(docs))
	for _, d := range docs {
		ratings = append(ratings, d.Rating)
	}
	return ratings, nil
}

// --- reservations ---

func (m *MongoAdapter) CreateReservation(ctx context.Context, reservation domain.Reservation) error {
	_, err := m.coll(reservationsCollection).InsertOne(ctx, reservation)
	if mongo.IsDuplicateKeyError(err) {
		return domain.NewError("mongo.CreateReservation", domain.ErrDuplicate, reservation.ConfirmationCode, "confirmation code already exists")
	}
	if err != nil {
		return fmt.Errorf("insert reservation: %w", err)
	}
	return nil
}

func (m *MongoAdapter) GetReservation(ctx context.Context, id string) (*domain.Reservation, error) {
	return findOne[domain.Reservation](ctx, m.coll(reservationsCollection), bson.M{"_id": id})
}

func (m *MongoAdapter) GetReservationByCode(ctx context.Context, code string) (*domain.Reservation, error) {
	return findOne[domain.Reservation](ctx, m.coll(reservationsCollection), bson.M{"confirmationCode": code})
}

func (m *MongoAdapter) UpdateReservation(ctx context.Context, reservation domain.Reservation, from domain.ReservationStatus) error {
	res, err := m.coll(reservationsCollection).ReplaceOne(ctx,
		bson.M{"_id": reservation.ID, "status": from}, reservation)
	if err != nil {
		return fmt.Errorf("update reservation: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.NewError("mongo.UpdateReservation", domain.ErrConflict, reservation.ID, "")
	}
	return nil
}

func (m *MongoAdapter) ListReservations(ctx context.Context, filter domain.ReservationFilter) ([]domain.Reservation, error) {
	q := bson.M{}
	if filter.UserID != "" {
		q["userId"] = filter.UserID
	}
	if len(filter.Statuses) > 0 {
		q["status"] = bson.M{"$in": filter.Statuses}
	}
	if !filter.From.IsZero() || !filter.To.IsZero() {
		date := bson.M{}
		if !filter.From.IsZero() {
			date["$gte"] = filter.From
		}
		if !filter.To.IsZero() {
			date["$lte"] = filter.To
		}
		q["date"] = date
	}
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}, {Key: "time", Value: -1}, {Key: "_id", Value: -1}})
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}
	return findAll[domain.Reservation](ctx, m.coll(reservationsCollection), q, opts)
}
