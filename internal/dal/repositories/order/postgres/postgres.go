package postgresrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/corray333/backend-labs/orderview/internal/service/models/currency"
	"github.com/corray333/backend-labs/orderview/internal/service/models/order"
	"github.com/corray333/backend-labs/orderview/internal/service/models/orderitem"
	"github.com/corray333/backend-labs/orderview/internal/service/models/payment"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// GenericConn is an interface that works with both pgxpool.Pool and pgx.Tx
type GenericConn interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// OrderDal represents order data access layer model
type OrderDal struct {
	Id            string     `db:"id"`
	UserName      string     `db:"user_name"`
	UserEmail     string     `db:"user_email"`
	UserPhone     string     `db:"user_phone"`
	VehicleName   string     `db:"vehicle_name"`
	MobileNumber  string     `db:"mobile_number"`
	VehicleNumber string     `db:"vehicle_number"`
	AadhaarNumber string     `db:"aadhaar_number"`
	PaymentMethod string     `db:"payment_method"`
	IsPaid        bool       `db:"is_paid"`
	PaidAt        *time.Time `db:"paid_at"`
	IsDelivered   bool       `db:"is_delivered"`
	DeliveredAt   *time.Time `db:"delivered_at"`
	TaxPrice      string     `db:"tax_price"`
	TotalPrice    string     `db:"total_price"`
	Currency      string     `db:"currency"`
}

// ToModel converts OrderDal to service layer Order model
func (o *OrderDal) ToModel() (*order.Order, error) {
	cur, err := currency.ParseCurrency(o.Currency)
	if err != nil {
		return nil, err
	}
	tax, err := decimal.NewFromString(o.TaxPrice)
	if err != nil {
		return nil, fmt.Errorf("failed to parse tax price: %w", err)
	}
	total, err := decimal.NewFromString(o.TotalPrice)
	if err != nil {
		return nil, fmt.Errorf("failed to parse total price: %w", err)
	}

	return &order.Order{
		ID: o.Id,
		Buyer: order.Buyer{
			Name:  o.UserName,
			Email: o.UserEmail,
			Phone: o.UserPhone,
		},
		Registration: order.Registration{
			VehicleName:   o.VehicleName,
			MobileNumber:  o.MobileNumber,
			VehicleNumber: o.VehicleNumber,
			AadhaarNumber: o.AadhaarNumber,
		},
		PaymentMethod: o.PaymentMethod,
		IsPaid:        o.IsPaid,
		PaidAt:        o.PaidAt,
		IsDelivered:   o.IsDelivered,
		DeliveredAt:   o.DeliveredAt,
		TaxPrice:      tax,
		TotalPrice:    total,
		Currency:      cur,
		Items:         []orderitem.OrderItem{}, // Will be populated separately
	}, nil
}

// OrderItemDal represents order item data access layer model.
type OrderItemDal struct {
	ProductId string `db:"product_id"`
	Name      string `db:"name"`
	Image     string `db:"image"`
	UnitPrice string `db:"unit_price"`
	Quantity  int    `db:"quantity"`
}

// ToModel converts OrderItemDal to service layer OrderItem model.
func (oi *OrderItemDal) ToModel() (*orderitem.OrderItem, error) {
	price, err := decimal.NewFromString(oi.UnitPrice)
	if err != nil {
		return nil, fmt.Errorf("failed to parse unit price: %w", err)
	}

	return &orderitem.OrderItem{
		ProductID: oi.ProductId,
		Name:      oi.Name,
		Image:     oi.Image,
		UnitPrice: price,
		Quantity:  oi.Quantity,
	}, nil
}

// PostgresOrderRepository represents a Postgres order repository.
type PostgresOrderRepository struct {
	conn GenericConn
	sb   sq.StatementBuilderType
}

// NewPostgresOrderRepository creates a new Postgres order repository.
func NewPostgresOrderRepository(conn GenericConn) *PostgresOrderRepository {
	return &PostgresOrderRepository{
		conn: conn,
		sb:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// Get loads an order with its items.
func (r *PostgresOrderRepository) Get(ctx context.Context, id string) (order.Order, error) {
	sql, args, err := r.sb.
		Select(
			"id",
			"user_name",
			"user_email",
			"user_phone",
			"vehicle_name",
			"mobile_number",
			"vehicle_number",
			"aadhaar_number",
			"payment_method",
			"is_paid",
			"paid_at",
			"is_delivered",
			"delivered_at",
			"tax_price::text",
			"total_price::text",
			"currency",
		).
		From("orders").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return order.Order{}, fmt.Errorf("failed to build query: %w", err)
	}

	var dal OrderDal
	err = r.conn.QueryRow(ctx, sql, args...).Scan(
		&dal.Id,
		&dal.UserName,
		&dal.UserEmail,
		&dal.UserPhone,
		&dal.VehicleName,
		&dal.MobileNumber,
		&dal.VehicleNumber,
		&dal.AadhaarNumber,
		&dal.PaymentMethod,
		&dal.IsPaid,
		&dal.PaidAt,
		&dal.IsDelivered,
		&dal.DeliveredAt,
		&dal.TaxPrice,
		&dal.TotalPrice,
		&dal.Currency,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return order.Order{}, order.ErrNotFound
	}
	if err != nil {
		return order.Order{}, fmt.Errorf("failed to scan order: %w", err)
	}

	model, err := dal.ToModel()
	if err != nil {
		return order.Order{}, fmt.Errorf("failed to convert order dal to model: %w", err)
	}

	model.Items, err = r.items(ctx, id)
	if err != nil {
		return order.Order{}, err
	}

	return *model, nil
}

func (r *PostgresOrderRepository) items(ctx context.Context, orderID string) ([]orderitem.OrderItem, error) {
	sql, args, err := r.sb.
		Select(
			"product_id",
			"name",
			"image",
			"unit_price::text",
			"quantity",
		).
		From("order_items").
		Where(sq.Eq{"order_id": orderID}).
		OrderBy("position ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	result := []orderitem.OrderItem{}
	for rows.Next() {
		var dal OrderItemDal
		err := rows.Scan(
			&dal.ProductId,
			&dal.Name,
			&dal.Image,
			&dal.UnitPrice,
			&dal.Quantity,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		item, err := dal.ToModel()
		if err != nil {
			return nil, fmt.Errorf("failed to convert order item dal to model: %w", err)
		}
		result = append(result, *item)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return result, nil
}

// MarkPaid flags an unpaid order as paid and stores the payment receipt.
func (r *PostgresOrderRepository) MarkPaid(
	ctx context.Context,
	receipt payment.Receipt,
	paidAt time.Time,
) error {
	payload, err := receipt.MarshalPayload()
	if err != nil {
		return fmt.Errorf("failed to marshal payment payload: %w", err)
	}

	sql, args, err := r.sb.
		Update("orders").
		Set("is_paid", true).
		Set("paid_at", paidAt).
		Set("payment_provider", receipt.Provider.String()).
		Set("payment_result", payload).
		Set("updated_at", paidAt).
		Where(sq.Eq{"id": receipt.OrderID, "is_paid": false}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update query: %w", err)
	}

	tag, err := r.conn.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("failed to mark order paid: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	status, err := r.status(ctx, receipt.OrderID)
	if err != nil {
		return err
	}
	if status.isPaid {
		return order.ErrAlreadyPaid
	}

	return fmt.Errorf("order %s was not updated", receipt.OrderID)
}

// MarkDelivered flags a paid, undelivered order as delivered.
func (r *PostgresOrderRepository) MarkDelivered(
	ctx context.Context,
	id string,
	deliveredAt time.Time,
) error {
	sql, args, err := r.sb.
		Update("orders").
		Set("is_delivered", true).
		Set("delivered_at", deliveredAt).
		Set("updated_at", deliveredAt).
		Where(sq.Eq{"id": id, "is_paid": true, "is_delivered": false}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update query: %w", err)
	}

	tag, err := r.conn.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("failed to mark order delivered: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	status, err := r.status(ctx, id)
	if err != nil {
		return err
	}
	if !status.isPaid {
		return order.ErrNotPaid
	}
	if status.isDelivered {
		return order.ErrAlreadyDelivered
	}

	return fmt.Errorf("order %s was not updated", id)
}

type orderStatus struct {
	isPaid      bool
	isDelivered bool
}

// status explains why a conditional update matched no rows.
func (r *PostgresOrderRepository) status(ctx context.Context, id string) (orderStatus, error) {
	sql, args, err := r.sb.
		Select("is_paid", "is_delivered").
		From("orders").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return orderStatus{}, fmt.Errorf("failed to build query: %w", err)
	}

	var st orderStatus
	err = r.conn.QueryRow(ctx, sql, args...).Scan(&st.isPaid, &st.isDelivered)
	if errors.Is(err, pgx.ErrNoRows) {
		return orderStatus{}, order.ErrNotFound
	}
	if err != nil {
		return orderStatus{}, fmt.Errorf("failed to query order status: %w", err)
	}

	return st, nil
}
