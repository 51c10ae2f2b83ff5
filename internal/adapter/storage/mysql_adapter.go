package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/Morsalin012/sushi-cafe-web/internal/core/domain"
)

//go:embed mysql_schema.sql
var mysqlSchema string

const mysqlDuplicateEntry = 1062

type MySQLAdapter struct {
	db *sql.DB
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

// Migrate creates missing tables. Statements are run one by one so the
// DSN does not need multiStatements.
func (m *MySQLAdapter) Migrate(ctx context.Context) error {
	for _, stmt := range strings.Split(mysqlSchema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := m.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (m *MySQLAdapter) Ping(ctx context.Context) error {
	return m.db.PingContext(ctx)
}

func (m *MySQLAdapter) Close(ctx context.Context) error {
	return m.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func isDuplicateEntry(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

// --- products ---

const productColumns = `id, name, description, category, price, stock, is_available, image, tags,
	preparation_time, is_vegetarian, is_spicy, is_featured, rating_average, rating_count,
	created_at, updated_at`

func scanProduct(row rowScanner) (domain.Product, error) {
	var (
		p    domain.Product
		tags []byte
	)
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Category, &p.Price, &p.Stock, &p.IsAvailable,
		&p.Image, &tags, &p.PreparationTime, &p.IsVegetarian, &p.IsSpicy, &p.IsFeatured,
		&p.Rating.Average, &p.Rating.Count, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return p, err
	}
	if len(tags) > 0 {
		if err := json.Unmarshal(tags, &p.Tags); err != nil {
			return p, fmt.Errorf("decode tags: %w", err)
		}
	}
	return p, nil
}

func (m *MySQLAdapter) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	p, err := scanProduct(m.db.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query product: %w", err)
	}
	return &p, nil
}

func (m *MySQLAdapter) GetProducts(ctx context.Context, ids []string) (map[string]domain.Product, error) {
	out := make(map[string]domain.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := m.db.QueryContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE id IN (`+placeholders(len(ids))+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		out[p.ID] = p
	}
	return out, rows.Err()
}

func productWhere(f domain.ProductFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.Category != "" {
		conds = append(conds, "category = ?")
		args = append(args, f.Category)
	}
	if f.Search != "" {
		like := "%" + f.Search + "%"
		conds = append(conds, "(name LIKE ? OR description LIKE ?)")
		args = append(args, like, like)
	}
	if f.MinPrice != nil {
		conds = append(conds, "price >= ?")
		args = append(args, *f.MinPrice)
	}
	if f.MaxPrice != nil {
		conds = append(conds, "price <= ?")
		args = append(args, *f.MaxPrice)
	}
	if f.Available != nil {
		conds = append(conds, "is_available = ?")
		args = append(args, *f.Available)
	}
	if f.Vegetarian {
		conds = append(conds, "is_vegetarian = TRUE")
	}
	if f.Spicy {
		conds = append(conds, "is_spicy = TRUE")
	}
	if f.Featured {
		conds = append(conds, "is_featured = TRUE")
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func productOrder(f domain.ProductFilter) string {
	col := "created_at"
	switch f.SortBy {
	case domain.SortByPrice:
		col = "price"
	case domain.SortByName:
		col = "name"
	case domain.SortByRating:
		col = "rating_average"
	}
	dir := "DESC"
	if f.Ascending {
		dir = "ASC"
	}
	return fmt.Sprintf(" ORDER BY %s %s, id %s", col, dir, dir)
}

func (m *MySQLAdapter) ListProducts(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, int, error) {
	where, args := productWhere(filter)

	var total int
	if err := m.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	query := `SELECT ` + productColumns + ` FROM products` + where + productOrder(filter)
	if filter.Page.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, filter.Page.Limit, filter.Page.Offset())
	}
	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	products := []domain.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, total, rows.Err()
}

func (m *MySQLAdapter) SaveProduct(ctx context.Context, p domain.Product) error {
	tags, err := json.Marshal(p.Tags)
	if err != nil {
		return fmt.Errorf("encode tags: %w", err)
	}
	_, err = m.db.ExecContext(ctx, `
		INSERT INTO products (`+productColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			name = VALUES(name), description = VALUES(description), category = VALUES(category),
			price = VALUES(price), stock = VALUES(stock), is_available = VALUES(is_available),
			image = VALUES(image), tags = VALUES(tags), preparation_time = VALUES(preparation_time),
			is_vegetarian = VALUES(is_vegetarian), is_spicy = VALUES(is_spicy),
			is_featured = VALUES(is_featured), rating_average = VALUES(rating_average),
			rating_count = VALUES(rating_count), updated_at = VALUES(updated_at)`,
		p.ID, p.Name, p.Description, p.Category, p.Price, p.Stock, p.IsAvailable, p.Image, tags,
		p.PreparationTime, p.IsVegetarian, p.IsSpicy, p.IsFeatured, p.Rating.Average, p.Rating.Count,
		p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save product: %w", err)
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func decrementStock(ctx context.Context, db execer, productID string, quantity int) (bool, error) {
	result, err := db.ExecContext(ctx, `
		UPDATE products
		SET stock = stock - ?, updated_at = ?
		WHERE id = ? AND stock >= ?`,
		quantity, time.Now().UTC(), productID, quantity,
	)
	if err != nil {
		return false, fmt.Errorf("decrement stock: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows == 1, nil
}

func (m *MySQLAdapter) DecrementStock(ctx context.Context, productID string, quantity int) (bool, error) {
	return decrementStock(ctx, m.db, productID, quantity)
}

func (m *MySQLAdapter) IncrementStock(ctx context.Context, productID string, quantity int) error {
	result, err := m.db.ExecContext(ctx, `
		UPDATE products SET stock = stock + ?, updated_at = ? WHERE id = ?`,
		quantity, time.Now().UTC(), productID,
	)
	if err != nil {
		return fmt.Errorf("increment stock: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return domain.NotFound("storage.IncrementStock", "product", productID)
	}
	return nil
}

func (m *MySQLAdapter) SetProductRating(ctx context.Context, productID string, rating domain.Rating) error {
	_, err := m.db.ExecContext(ctx, `
		UPDATE products SET rating_average = ?, rating_count = ? WHERE id = ?`,
		rating.Average, rating.Count, productID,
	)
	if err != nil {
		return fmt.Errorf("set rating: %w", err)
	}
	return nil
}

// --- carts ---

func (m *MySQLAdapter) GetCart(ctx context.Context, userID string) (*domain.Cart, error) {
	var (
		cart  = domain.Cart{UserID: userID}
		items []byte
	)
	err := m.db.QueryRowContext(ctx,
		`SELECT items, last_updated FROM carts WHERE user_id = ?`, userID,
	).Scan(&items, &cart.LastUpdated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query cart: %w", err)
	}
	if err := json.Unmarshal(items, &cart.Items); err != nil {
		return nil, fmt.Errorf("decode cart: %w", err)
	}
	if cart.Items == nil {
		cart.Items = []domain.CartItem{}
	}
	return &cart, nil
}

func (m *MySQLAdapter) SaveCart(ctx context.Context, cart *domain.Cart) error {
	items, err := json.Marshal(cart.Items)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	_, err = m.db.ExecContext(ctx, `
		INSERT INTO carts (user_id, items, last_updated) VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE items = VALUES(items), last_updated = VALUES(last_updated)`,
		cart.UserID, items, cart.LastUpdated,
	)
	if err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}

// --- orders ---

const orderColumns = `id, order_number, user_id, subtotal, tax, delivery_fee, total, order_type,
	table_number, delivery_address, payment_method, notes, status, estimated_ready_time,
	created_at, updated_at, completed_at, cancelled_at, cancellation_reason`

func scanOrder(row rowScanner) (domain.Order, error) {
	var (
		o                      domain.Order
		address                []byte
		completed, cancelledAt sql.NullTime
	)
	err := row.Scan(&o.ID, &o.OrderNumber, &o.UserID, &o.Subtotal, &o.Tax, &o.DeliveryFee, &o.Total,
		&o.OrderType, &o.TableNumber, &address, &o.PaymentMethod, &o.Notes, &o.Status,
		&o.EstimatedReadyTime, &o.CreatedAt, &o.UpdatedAt, &completed, &cancelledAt,
		&o.CancellationReason)
	if err != nil {
		return o, err
	}
	if len(address) > 0 && string(address) != "null" {
		o.DeliveryAddress = &domain.Address{}
		if err := json.Unmarshal(address, o.DeliveryAddress); err != nil {
			return o, fmt.Errorf("decode address: %w", err)
		}
	}
	o.CompletedAt = timePtr(completed)
	o.CancelledAt = timePtr(cancelledAt)
	return o, nil
}

func insertOrder(ctx context.Context, tx *sql.Tx, o domain.Order) error {
	var address []byte
	if o.DeliveryAddress != nil {
		var err error
		if address, err = json.Marshal(o.DeliveryAddress); err != nil {
			return fmt.Errorf("encode address: %w", err)
		}
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO orders (`+orderColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ID, o.OrderNumber, o.UserID, o.Subtotal, o.Tax, o.DeliveryFee, o.Total, o.OrderType,
		o.TableNumber, address, o.PaymentMethod, o.Notes, o.Status, o.EstimatedReadyTime,
		o.CreatedAt, o.UpdatedAt, nullTime(o.CompletedAt), nullTime(o.CancelledAt), o.CancellationReason,
	)
	if isDuplicateEntry(err) {
		return domain.NewError("storage.CreateOrder", domain.ErrDuplicate, o.OrderNumber, "order number already exists")
	}
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for i, it := range o.Items {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO order_items (order_id, line_no, product_id, name, price, quantity, instructions)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			o.ID, i, it.ProductID, it.Name, it.Price, it.Quantity, it.Instructions,
		)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}
	return nil
}

// PlaceOrder inserts the order and decrements every stock line in one
// transaction. Any short line rolls the whole order back.
func (m *MySQLAdapter) PlaceOrder(ctx context.Context, order domain.Order) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := insertOrder(ctx, tx, order); err != nil {
		return err
	}

	for _, it := range order.Items {
		ok, err := decrementStock(ctx, tx, it.ProductID, it.Quantity)
		if err != nil {
			return err
		}
		if !ok {
			return domain.NewError("storage.PlaceOrder", domain.ErrInsufficientStock, it.ProductID, "insufficient stock for "+it.Name)
		}
	}

	return tx.Commit()
}

func (m *MySQLAdapter) CreateOrder(ctx context.Context, order domain.Order) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := insertOrder(ctx, tx, order); err != nil {
		return err
	}
	return tx.Commit()
}

func (m *MySQLAdapter) DeleteOrder(ctx context.Context, id string) error {
	if _, err := m.db.ExecContext(ctx, `DELETE FROM orders WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	return nil
}

// loadItems fills Items for the given orders in one query.
func (m *MySQLAdapter) loadItems(ctx context.Context, orders []domain.Order) error {
	if len(orders) == 0 {
		return nil
	}
	index := make(map[string]int, len(orders))
	args := make([]any, len(orders))
	for i := range orders {
		index[orders[i].ID] = i
		args[i] = orders[i].ID
		orders[i].Items = []domain.OrderItem{}
	}
	rows, err := m.db.QueryContext(ctx, `
		SELECT order_id, product_id, name, price, quantity, instructions
		FROM order_items WHERE order_id IN (`+placeholders(len(orders))+`)
		ORDER BY order_id, line_no`, args...)
	if err != nil {
		return fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			orderID string
			it      domain.OrderItem
		)
		if err := rows.Scan(&orderID, &it.ProductID, &it.Name, &it.Price, &it.Quantity, &it.Instructions); err != nil {
			return fmt.Errorf("scan order item: %w", err)
		}
		i := index[orderID]
		orders[i].Items = append(orders[i].Items, it)
	}
	return rows.Err()
}

func (m *MySQLAdapter) getOrderWhere(ctx context.Context, column, value string) (*domain.Order, error) {
	o, err := scanOrder(m.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE `+column+` = ?`, value))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query order: %w", err)
	}
	orders := []domain.Order{o}
	if err := m.loadItems(ctx, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

func (m *MySQLAdapter) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	return m.getOrderWhere(ctx, "id", id)
}

func (m *MySQLAdapter) GetOrderByNumber(ctx context.Context, orderNumber string) (*domain.Order, error) {
	return m.getOrderWhere(ctx, "order_number", orderNumber)
}

func (m *MySQLAdapter) ListOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, int, error) {
	var (
		conds []string
		args  []any
	)
	if filter.UserID != "" {
		conds = append(conds, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, filter.Status)
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := m.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	query := `SELECT ` + orderColumns + ` FROM orders` + where + ` ORDER BY created_at DESC, id DESC`
	if filter.Page.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, filter.Page.Limit, filter.Page.Offset())
	}
	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query orders: %w", err)
	}
	orders := []domain.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, 0, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	if err := m.loadItems(ctx, orders); err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (m *MySQLAdapter) UpdateOrderStatus(ctx context.Context, o domain.Order, from domain.OrderStatus) error {
	result, err := m.db.ExecContext(ctx, `
		UPDATE orders
		SET status = ?, updated_at = ?, completed_at = ?, cancelled_at = ?, cancellation_reason = ?
		WHERE id = ? AND status = ?`,
		o.Status, o.UpdatedAt, nullTime(o.CompletedAt), nullTime(o.CancelledAt), o.CancellationReason,
		o.ID, from,
	)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return domain.NewError("storage.UpdateOrderStatus", domain.ErrConflict, o.ID, "")
	}
	return nil
}

func (m *MySQLAdapter) HasPurchased(ctx context.Context, userID, productID, orderID string) (bool, error) {
	query := `
		SELECT COUNT(*) FROM orders o
		JOIN order_items i ON i.order_id = o.id
		WHERE o.user_id = ? AND i.product_id = ? AND o.status IN (?, ?)`
	args := []any{userID, productID, domain.OrderStatusDelivered, domain.OrderStatusCompleted}
	if orderID != "" {
		query += ` AND o.id = ?`
		args = append(args, orderID)
	}
	var n int
	if err := m.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return false, fmt.Errorf("query purchases: %w", err)
	}
	return n > 0, nil
}

// --- users ---

func (m *MySQLAdapter) CreateUser(ctx context.Context, u domain.User) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO users (id, name, email, phone, role, total_orders, total_spent, loyalty_points,
			last_order_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Name, u.Email, u.Phone, u.Role, u.TotalOrders, u.TotalSpent, u.LoyaltyPoints,
		nullTime(u.LastOrderDate), u.CreatedAt,
	)
	if isDuplicateEntry(err) {
		return domain.NewError("storage.CreateUser", domain.ErrDuplicate, u.Email, "email already registered")
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) GetUser(ctx context.Context, id string) (*domain.User, error) {
	var (
		u    domain.User
		last sql.NullTime
	)
	err := m.db.QueryRowContext(ctx, `
		SELECT id, name, email, phone, role, total_orders, total_spent, loyalty_points,
			last_order_date, created_at
		FROM users WHERE id = ?`, id,
	).Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &u.Role, &u.TotalOrders, &u.TotalSpent,
		&u.LoyaltyPoints, &last, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	u.LastOrderDate = timePtr(last)
	return &u, nil
}

func (m *MySQLAdapter) RecordOrder(ctx context.Context, userID string, s domain.OrderStats) error {
	result, err := m.db.ExecContext(ctx, `
		UPDATE users
		SET total_orders = total_orders + ?, total_spent = total_spent + ?,
			loyalty_points = loyalty_points + ?, last_order_date = ?
		WHERE id = ?`,
		s.Orders, s.Spent, s.Points, s.LastDate, userID,
	)
	if err != nil {
		return fmt.Errorf("record order: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return domain.NotFound("storage.RecordOrder", "user", userID)
	}
	return nil
}

// --- reviews ---

const reviewColumns = `id, product_id, user_id, order_id, rating, title, comment,
	is_verified_purchase, helpful_users, is_visible, created_at, updated_at`

func scanReview(row rowScanner) (domain.Review, error) {
	var (
		r       domain.Review
		helpful []byte
	)
	err := row.Scan(&r.ID, &r.ProductID, &r.UserID, &r.OrderID, &r.Rating, &r.Title, &r.Comment,
		&r.IsVerifiedPurchase, &helpful, &r.IsVisible, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return r, err
	}
	if err := json.Unmarshal(helpful, &r.Helpful.Users); err != nil {
		return r, fmt.Errorf("decode helpful: %w", err)
	}
	if r.Helpful.Users == nil {
		r.Helpful.Users = []string{}
	}
	r.Helpful.Count = len(r.Helpful.Users)
	return r, nil
}

func helpfulJSON(users []string) ([]byte, error) {
	if users == nil {
		users = []string{}
	}
	return json.Marshal(users)
}

func (m *MySQLAdapter) CreateReview(ctx context.Context, r domain.Review) error {
	helpful, err := helpfulJSON(r.Helpful.Users)
	if err != nil {
		return fmt.Errorf("encode helpful: %w", err)
	}
	_, err = m.db.ExecContext(ctx, `
		INSERT INTO reviews (`+reviewColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.ProductID, r.UserID, r.OrderID, r.Rating, r.Title, r.Comment,
		r.IsVerifiedPurchase, helpful, r.IsVisible, r.CreatedAt, r.UpdatedAt,
	)
	if isDuplicateEntry(err) {
		return domain.NewError("storage.CreateReview", domain.ErrDuplicate, r.ProductID, "you have already reviewed this product")
	}
	if err != nil {
		return fmt.Errorf("insert review: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) GetReview(ctx context.Context, id string) (*domain.Review, error) {
	r, err := scanReview(m.db.QueryRowContext(ctx,
		`SELECT `+reviewColumns+` FROM reviews WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query review: %w", err)
	}
	return &r, nil
}

func (m *MySQLAdapter) UpdateReview(ctx context.Context, r domain.Review) error {
	helpful, err := helpfulJSON(r.Helpful.Users)
	if err != nil {
		return fmt.Errorf("encode helpful: %w", err)
	}
	_, err = m.db.ExecContext(ctx, `
		UPDATE reviews
		SET rating = ?, title = ?, comment = ?, helpful_users = ?, is_visible = ?, updated_at = ?
		WHERE id = ?`,
		r.Rating, r.Title, r.Comment, helpful, r.IsVisible, r.UpdatedAt, r.ID,
	)
	if err != nil {
		return fmt.Errorf("update review: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) DeleteReview(ctx context.Context, id string) error {
	if _, err := m.db.ExecContext(ctx, `DELETE FROM reviews WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete review: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) ListReviews(ctx context.Context, filter domain.ReviewFilter) ([]domain.Review, int, error) {
	var (
		conds []string
		args  []any
	)
	if filter.ProductID != "" {
		conds = append(conds, "product_id = ?")
		args = append(args, filter.ProductID)
	}
	if filter.VisibleOnly {
		conds = append(conds, "is_visible = TRUE")
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := m.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM reviews`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count reviews: %w", err)
	}

	col, dir := "created_at", "DESC"
	if filter.SortBy == domain.ReviewSortRating {
		col = "rating"
	}
	if filter.Ascending {
		dir = "ASC"
	}
	query := fmt.Sprintf(`SELECT %s FROM reviews%s ORDER BY %s %s, id %s`, reviewColumns, where, col, dir, dir)
	if filter.Page.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, filter.Page.Limit, filter.Page.Offset())
	}
	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query reviews: %w", err)
	}
	defer rows.Close()

	reviews := []domain.Review{}
	for rows.Next() {
		r, err := scanReview(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan review: %w", err)
		}
		reviews = append(reviews, r)
	}
	return reviews, total, rows.Err()
}

func (m *MySQLAdapter) VisibleRatings(ctx context.Context, productID string) ([]int, error) {
	rows, err := m.db.QueryContext(ctx,
		`SELECT rating FROM reviews WHERE product_id = ? AND is_visible = TRUE`, productID)
	if err != nil {
		return nil, fmt.Errorf("query ratings: %w", err)
	}
	defer rows.Close()

	var ratings []int
	for rows.Next() {
		var r int
		if err := rows.Scan(&r); err != nil {
			return nil, fmt.Errorf("scan rating: %w", err)
		}
		ratings = append(ratings, r)
	}
	return ratings, rows.Err()
}

// --- reservations ---

const reservationColumns = `id, user_id, guest_name, guest_email, guest_phone, date, time, party_size,
	table_number, occasion, special_requests, status, confirmation_code, notes, cancelled_at,
	cancellation_reason, created_at, updated_at`

func scanReservation(row rowScanner) (domain.Reservation, error) {
	var (
		r         domain.Reservation
		cancelled sql.NullTime
	)
	err := row.Scan(&r.ID, &r.UserID, &r.GuestName, &r.GuestEmail, &r.GuestPhone, &r.Date, &r.Time,
		&r.PartySize, &r.TableNumber, &r.Occasion, &r.SpecialRequests, &r.Status, &r.ConfirmationCode,
		&r.Notes, &cancelled, &r.CancellationReason, &r.CreatedAt, &r.UpdatedAt)
	r.CancelledAt = timePtr(cancelled)
	return r, err
}

func (m *MySQLAdapter) CreateReservation(ctx context.Context, r domain.Reservation) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO reservations (`+reservationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.UserID, r.GuestName, r.GuestEmail, r.GuestPhone, r.Date, r.Time, r.PartySize,
		r.TableNumber, r.Occasion, r.SpecialRequests, r.Status, r.ConfirmationCode, r.Notes,
		nullTime(r.CancelledAt), r.CancellationReason, r.CreatedAt, r.UpdatedAt,
	)
	if isDuplicateEntry(err) {
		return domain.NewError("storage.CreateReservation", domain.ErrDuplicate, r.ConfirmationCode, "confirmation code already exists")
	}
	if err != nil {
		return fmt.Errorf("insert reservation: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) getReservationWhere(ctx context.Context, column, value string) (*domain.Reservation, error) {
	r, err := scanReservation(m.db.QueryRowContext(ctx,
		`SELECT `+reservationColumns+` FROM reservations WHERE `+column+` = ?`, value))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query reservation: %w", err)
	}
	return &r, nil
}

func (m *MySQLAdapter) GetReservation(ctx context.Context, id string) (*domain.Reservation, error) {
	return m.getReservationWhere(ctx, "id", id)
}

func (m *MySQLAdapter) GetReservationByCode(ctx context.Context, code string) (*domain.Reservation, error) {
	return m.getReservationWhere(ctx, "confirmation_code", code)
}

func (m *MySQLAdapter) UpdateReservation(ctx context.Context, r domain.Reservation, from domain.ReservationStatus) error {
	result, err := m.db.ExecContext(ctx, `
		UPDATE reservations
		SET date = ?, time = ?, party_size = ?, table_number = ?, occasion = ?, special_requests = ?,
			status = ?, notes = ?, cancelled_at = ?, cancellation_reason = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		r.Date, r.Time, r.PartySize, r.TableNumber, r.Occasion, r.SpecialRequests,
		r.Status, r.Notes, nullTime(r.CancelledAt), r.CancellationReason, r.UpdatedAt,
		r.ID, from,
	)
	if err != nil {
		return fmt.Errorf("update reservation: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return domain.NewError("storage.UpdateReservation", domain.ErrConflict, r.ID, "")
	}
	return nil
}

func (m *MySQLAdapter) ListReservations(ctx context.Context, filter domain.ReservationFilter) ([]domain.Reservation, error) {
	var (
		conds []string
		args  []any
	)
	if filter.UserID != "" {
		conds = append(conds, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if len(filter.Statuses) > 0 {
		conds = append(conds, "status IN ("+placeholders(len(filter.Statuses))+")")
		for _, s := range filter.Statuses {
			args = append(args, s)
		}
	}
	if !filter.From.IsZero() {
		conds = append(conds, "date >= ?")
		args = append(args, filter.From)
	}
	if !filter.To.IsZero() {
		conds = append(conds, "date <= ?")
		args = append(args, filter.To)
	}
	query := `SELECT ` + reservationColumns + ` FROM reservations`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY date DESC, time DESC, id DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query reservations: %w", err)
	}
	defer rows.Close()

	out := []domain.Reservation{}
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reservation: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
