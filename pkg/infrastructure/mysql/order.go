package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"storefront/pkg/domain/model"
)

const orderColumns = `id, order_id, customer_id, customer_ref, customer_name, customer_email, customer_phone,
	subtotal, discount_amount, total, coupon_code, currency,
	delivery_full_name, delivery_phone, delivery_address_line, delivery_city, delivery_postal_code,
	distance_km, is_local,
	payment_method, payment_gateway, gateway_order_id, gateway_payment_id, gateway_signature,
	order_status, payment_status, delivery_status,
	return_request, replacement_request, delivered_at,
	version, created_at, updated_at`

type orderRow struct {
	ID            uuid.UUID     `db:"id"`
	OrderID       string        `db:"order_id"`
	CustomerID    uuid.NullUUID `db:"customer_id"`
	CustomerRef   string        `db:"customer_ref"`
	CustomerName  string        `db:"customer_name"`
	CustomerEmail string        `db:"customer_email"`
	CustomerPhone string        `db:"customer_phone"`

	Subtotal       decimal.Decimal `db:"subtotal"`
	DiscountAmount decimal.Decimal `db:"discount_amount"`
	Total          decimal.Decimal `db:"total"`
	CouponCode     string          `db:"coupon_code"`
	Currency       string          `db:"currency"`

	DeliveryFullName    string `db:"delivery_full_name"`
	DeliveryPhone       string `db:"delivery_phone"`
	DeliveryAddressLine string `db:"delivery_address_line"`
	DeliveryCity        string `db:"delivery_city"`
	DeliveryPostalCode  string `db:"delivery_postal_code"`

	DistanceKm float64 `db:"distance_km"`
	IsLocal    bool    `db:"is_local"`

	PaymentMethod    string         `db:"payment_method"`
	PaymentGateway   string         `db:"payment_gateway"`
	GatewayOrderID   sql.NullString `db:"gateway_order_id"`
	GatewayPaymentID string         `db:"gateway_payment_id"`
	GatewaySignature string         `db:"gateway_signature"`

	OrderStatus    string `db:"order_status"`
	PaymentStatus  string `db:"payment_status"`
	DeliveryStatus string `db:"delivery_status"`

	ReturnRequest      sql.NullString `db:"return_request"`
	ReplacementRequest sql.NullString `db:"replacement_request"`
	DeliveredAt        *time.Time     `db:"delivered_at"`

	Version   int       `db:"version"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

type lineRow struct {
	OrderID   string `db:"order_id"`
	Position  int    `db:"position"`
	ProductID string `db:"product_id"`
	Quantity  int    `db:"quantity"`
}

// subRequestJSON is the stored shape of a return or replacement request.
type subRequestJSON struct {
	Reason          string     `json:"reason"`
	Description     string     `json:"description,omitempty"`
	RequestedAt     time.Time  `json:"requestedAt"`
	ApprovedAt      *time.Time `json:"approvedAt,omitempty"`
	RejectedAt      *time.Time `json:"rejectedAt,omitempty"`
	RejectionReason string     `json:"rejectionReason,omitempty"`
}

func NewOrderRepository(db *sqlx.DB) model.OrderRepository {
	return &orderRepository{db: db}
}

type orderRepository struct {
	db *sqlx.DB
}

func (r *orderRepository) NextID() (uuid.UUID, error) {
	return uuid.NewRandom()
}

func (r *orderRepository) Create(ctx context.Context, order *model.Order) error {
	row, err := toOrderRow(order)
	if err != nil {
		return err
	}
	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		_, err := tx.NamedExecContext(ctx, `INSERT INTO orders (`+orderColumns+`) VALUES (
			:id, :order_id, :customer_id, :customer_ref, :customer_name, :customer_email, :customer_phone,
			:subtotal, :discount_amount, :total, :coupon_code, :currency,
			:delivery_full_name, :delivery_phone, :delivery_address_line, :delivery_city, :delivery_postal_code,
			:distance_km, :is_local,
			:payment_method, :payment_gateway, :gateway_order_id, :gateway_payment_id, :gateway_signature,
			:order_status, :payment_status, :delivery_status,
			:return_request, :replacement_request, :delivered_at,
			:version, :created_at, :updated_at)`, row)
		if err != nil {
			return errors.Wrap(err, "insert order")
		}
		return insertLines(ctx, tx, order)
	})
}

func insertLines(ctx context.Context, tx *sqlx.Tx, order *model.Order) error {
	if len(order.Lines) == 0 {
		return nil
	}
	lines := make([]lineRow, 0, len(order.Lines))
	for i, l := range order.Lines {
		lines = append(lines, lineRow{OrderID: order.OrderID, Position: i, ProductID: l.ProductID, Quantity: l.Quantity})
	}
	_, err := tx.NamedExecContext(ctx,
		`INSERT INTO order_lines (order_id, position, product_id, quantity) VALUES (:order_id, :position, :product_id, :quantity)`,
		lines)
	return errors.Wrap(err, "insert order lines")
}

func (r *orderRepository) Find(ctx context.Context, orderID string) (*model.Order, error) {
	return r.findOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE order_id = ?`, orderID)
}

func (r *orderRepository) FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*model.Order, error) {
	return r.findOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE gateway_order_id = ?`, gatewayOrderID)
}

func (r *orderRepository) findOne(ctx context.Context, query string, arg any) (*model.Order, error) {
	var row orderRow
	err := r.db.GetContext(ctx, &row, query, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrOrderNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "select order")
	}
	orders, err := r.withLines(ctx, []orderRow{row})
	if err != nil {
		return nil, err
	}
	return &orders[0], nil
}

// Update writes every mutable column, guarded by the previous version.
func (r *orderRepository) Update(ctx context.Context, order *model.Order) error {
	row, err := toOrderRow(order)
	if err != nil {
		return err
	}
	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		query, args, err := sqlx.Named(`UPDATE orders SET
			subtotal = :subtotal, discount_amount = :discount_amount, total = :total, coupon_code = :coupon_code,
			payment_gateway = :payment_gateway, gateway_order_id = :gateway_order_id,
			gateway_payment_id = :gateway_payment_id, gateway_signature = :gateway_signature,
			order_status = :order_status, payment_status = :payment_status, delivery_status = :delivery_status,
			return_request = :return_request, replacement_request = :replacement_request, delivered_at = :delivered_at,
			version = :version, updated_at = :updated_at
			WHERE order_id = :order_id AND version = :version - 1`, row)
		if err != nil {
			return errors.Wrap(err, "bind order update")
		}
		res, err := tx.ExecContext(ctx, tx.Rebind(query), args...)
		if err != nil {
			return errors.Wrap(err, "update order")
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return errors.Wrap(err, "update order")
		}
		if affected == 1 {
			return nil
		}

		var exists bool
		if err := tx.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM orders WHERE order_id = ?)`, order.OrderID); err != nil {
			return errors.Wrap(err, "check order")
		}
		if !exists {
			return model.ErrOrderNotFound
		}
		return model.ErrOptimisticLock
	})
}

func (r *orderRepository) List(ctx context.Context) ([]model.Order, error) {
	var rows []orderRow
	if err := r.db.SelectContext(ctx, &rows, `SELECT `+orderColumns+` FROM orders ORDER BY created_at DESC`); err != nil {
		return nil, errors.Wrap(err, "select orders")
	}
	return r.withLines(ctx, rows)
}

func (r *orderRepository) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]model.Order, error) {
	var rows []orderRow
	err := r.db.SelectContext(ctx, &rows,
		`SELECT `+orderColumns+` FROM orders WHERE customer_id = ? ORDER BY created_at DESC`, customerID.String())
	if err != nil {
		return nil, errors.Wrap(err, "select customer orders")
	}
	return r.withLines(ctx, rows)
}

// withLines loads the lines of every order in one query and assembles the aggregates.
func (r *orderRepository) withLines(ctx context.Context, rows []orderRow) ([]model.Order, error) {
	if len(rows) == 0 {
		return []model.Order{}, nil
	}
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.OrderID)
	}
	query, args, err := sqlx.In(`SELECT order_id, position, product_id, quantity FROM order_lines WHERE order_id IN (?) ORDER BY order_id, position`, ids)
	if err != nil {
		return nil, errors.Wrap(err, "bind order lines")
	}
	var lines []lineRow
	if err := r.db.SelectContext(ctx, &lines, r.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "select order lines")
	}
	byOrder := make(map[string][]model.OrderLine, len(rows))
	for _, l := range lines {
		byOrder[l.OrderID] = append(byOrder[l.OrderID], model.OrderLine{ProductID: l.ProductID, Quantity: l.Quantity})
	}

	orders := make([]model.Order, 0, len(rows))
	for _, row := range rows {
		o, err := fromOrderRow(row)
		if err != nil {
			return nil, err
		}
		o.Lines = byOrder[row.OrderID]
		orders = append(orders, *o)
	}
	return orders, nil
}

func toOrderRow(o *model.Order) (orderRow, error) {
	returnRequest, err := encodeSubRequest(o.ReturnRequest)
	if err != nil {
		return orderRow{}, err
	}
	replacementRequest, err := encodeSubRequest(o.ReplacementRequest)
	if err != nil {
		return orderRow{}, err
	}
	return orderRow{
		ID:                  o.ID,
		OrderID:             o.OrderID,
		CustomerID:          uuid.NullUUID{UUID: o.CustomerID, Valid: o.CustomerID != uuid.Nil},
		CustomerRef:         o.Customer.ID,
		CustomerName:        o.Customer.Name,
		CustomerEmail:       o.Customer.Email,
		CustomerPhone:       o.Customer.Phone,
		Subtotal:            o.Subtotal,
		DiscountAmount:      o.DiscountAmount,
		Total:               o.Total,
		CouponCode:          o.CouponCode,
		Currency:            o.Currency,
		DeliveryFullName:    o.Delivery.FullName,
		DeliveryPhone:       o.Delivery.Phone,
		DeliveryAddressLine: o.Delivery.AddressLine,
		DeliveryCity:        o.Delivery.City,
		DeliveryPostalCode:  o.Delivery.PostalCode,
		DistanceKm:          o.Distance.Kilometers,
		IsLocal:             o.Distance.IsLocal,
		PaymentMethod:       string(o.Payment.Method),
		PaymentGateway:      o.Payment.Gateway,
		GatewayOrderID:      sql.NullString{String: o.Payment.GatewayOrderID, Valid: o.Payment.GatewayOrderID != ""},
		GatewayPaymentID:    o.Payment.GatewayPaymentID,
		GatewaySignature:    o.Payment.Signature,
		OrderStatus:         string(o.OrderStatus),
		PaymentStatus:       string(o.PaymentStatus),
		DeliveryStatus:      string(o.DeliveryStatus),
		ReturnRequest:       returnRequest,
		ReplacementRequest:  replacementRequest,
		DeliveredAt:         o.DeliveredAt,
		Version:             o.Version,
		CreatedAt:           o.CreatedAt,
		UpdatedAt:           o.UpdatedAt,
	}, nil
}

func fromOrderRow(row orderRow) (*model.Order, error) {
	returnRequest, err := decodeSubRequest(row.ReturnRequest)
	if err != nil {
		return nil, errors.Wrapf(err, "order %s return request", row.OrderID)
	}
	replacementRequest, err := decodeSubRequest(row.ReplacementRequest)
	if err != nil {
		return nil, errors.Wrapf(err, "order %s replacement request", row.OrderID)
	}
	o := &model.Order{
		ID:         row.ID,
		OrderID:    row.OrderID,
		CustomerID: row.CustomerID.UUID,
		Customer: model.CustomerSnapshot{
			ID:    row.CustomerRef,
			Name:  row.CustomerName,
			Email: row.CustomerEmail,
			Phone: row.CustomerPhone,
		},
		Subtotal:       row.Subtotal,
		DiscountAmount: row.DiscountAmount,
		Total:          row.Total,
		CouponCode:     row.CouponCode,
		Currency:       row.Currency,
		Delivery: model.DeliveryAddress{
			FullName:    row.DeliveryFullName,
			Phone:       row.DeliveryPhone,
			AddressLine: row.DeliveryAddressLine,
			City:        row.DeliveryCity,
			PostalCode:  row.DeliveryPostalCode,
		},
		Distance: model.Distance{Kilometers: row.DistanceKm, IsLocal: row.IsLocal},
		Payment: model.Payment{
			Method:           model.PaymentMethod(row.PaymentMethod),
			Gateway:          row.PaymentGateway,
			GatewayOrderID:   row.GatewayOrderID.String,
			GatewayPaymentID: row.GatewayPaymentID,
			Signature:        row.GatewaySignature,
		},
		OrderStatus:        model.OrderStatus(row.OrderStatus),
		PaymentStatus:      model.PaymentStatus(row.PaymentStatus),
		DeliveryStatus:     model.DeliveryStatus(row.DeliveryStatus),
		ReturnRequest:      returnRequest,
		ReplacementRequest: replacementRequest,
		DeliveredAt:        utcPtr(row.DeliveredAt),
		Version:            row.Version,
		CreatedAt:          row.CreatedAt.UTC(),
		UpdatedAt:          row.UpdatedAt.UTC(),
	}
	return o, nil
}

// encodeSubRequest leaves the column NULL for a missing request.
func encodeSubRequest(req *model.SubRequest) (sql.NullString, error) {
	if req == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(subRequestJSON{
		Reason:          req.Reason,
		Description:     req.Description,
		RequestedAt:     req.RequestedAt,
		ApprovedAt:      req.ApprovedAt,
		RejectedAt:      req.RejectedAt,
		RejectionReason: req.RejectionReason,
	})
	if err != nil {
		return sql.NullString{}, errors.Wrap(err, "encode sub-request")
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func decodeSubRequest(col sql.NullString) (*model.SubRequest, error) {
	if !col.Valid || col.String == "" {
		return nil, nil
	}
	var stored subRequestJSON
	if err := json.Unmarshal([]byte(col.String), &stored); err != nil {
		return nil, err
	}
	return &model.SubRequest{
		Reason:          stored.Reason,
		Description:     stored.Description,
		RequestedAt:     stored.RequestedAt.UTC(),
		ApprovedAt:      utcPtr(stored.ApprovedAt),
		RejectedAt:      utcPtr(stored.RejectedAt),
		RejectionReason: stored.RejectionReason,
	}, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	utc := t.UTC()
	return &utc
}
