package mysql

import (
	"context"
	"database/sql"
	"time"

	gomysql "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"storefront/pkg/domain/model"
)

const (
	couponColumns = `code, label, description, type, value, active, starts_at, ends_at, min_subtotal, max_discount, created_at, updated_at`

	mysqlDuplicateEntry = 1062
)

type couponRow struct {
	Code        string              `db:"code"`
	Label       string              `db:"label"`
	Description string              `db:"description"`
	Type        string              `db:"type"`
	Value       decimal.Decimal     `db:"value"`
	Active      bool                `db:"active"`
	StartsAt    *time.Time          `db:"starts_at"`
	EndsAt      *time.Time          `db:"ends_at"`
	MinSubtotal decimal.NullDecimal `db:"min_subtotal"`
	MaxDiscount decimal.NullDecimal `db:"max_discount"`
	CreatedAt   time.Time           `db:"created_at"`
	UpdatedAt   time.Time           `db:"updated_at"`
}

func NewCouponRepository(db *sqlx.DB) model.CouponRepository {
	return &couponRepository{db: db}
}

type couponRepository struct {
	db *sqlx.DB
}

func (r *couponRepository) FindActive(ctx context.Context, code string) (*model.Coupon, error) {
	return r.findOne(ctx, `SELECT `+couponColumns+` FROM coupons WHERE code = ? AND active = 1`, code)
}

func (r *couponRepository) Find(ctx context.Context, code string) (*model.Coupon, error) {
	return r.findOne(ctx, `SELECT `+couponColumns+` FROM coupons WHERE code = ?`, code)
}

func (r *couponRepository) findOne(ctx context.Context, query, code string) (*model.Coupon, error) {
	var row couponRow
	err := r.db.GetContext(ctx, &row, query, code)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrCouponNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "select coupon")
	}
	return fromCouponRow(row), nil
}

func (r *couponRepository) List(ctx context.Context) ([]model.Coupon, error) {
	return r.list(ctx, `SELECT `+couponColumns+` FROM coupons ORDER BY created_at DESC`)
}

func (r *couponRepository) ListActive(ctx context.Context) ([]model.Coupon, error) {
	return r.list(ctx, `SELECT `+couponColumns+` FROM coupons WHERE active = 1 ORDER BY created_at DESC`)
}

func (r *couponRepository) list(ctx context.Context, query string) ([]model.Coupon, error) {
	var rows []couponRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, errors.Wrap(err, "select coupons")
	}
	coupons := make([]model.Coupon, 0, len(rows))
	for _, row := range rows {
		coupons = append(coupons, *fromCouponRow(row))
	}
	return coupons, nil
}

func (r *couponRepository) Create(ctx context.Context, coupon *model.Coupon) error {
	_, err := r.db.NamedExecContext(ctx, `INSERT INTO coupons (`+couponColumns+`) VALUES
		(:code, :label, :description, :type, :value, :active, :starts_at, :ends_at, :min_subtotal, :max_discount, :created_at, :updated_at)`,
		toCouponRow(coupon))
	var mysqlErr *gomysql.MySQLError
	if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry {
		return model.ErrCouponExists
	}
	return errors.Wrap(err, "insert coupon")
}

func (r *couponRepository) Update(ctx context.Context, coupon *model.Coupon) error {
	res, err := r.db.NamedExecContext(ctx, `UPDATE coupons SET
		label = :label, description = :description, type = :type, value = :value, active = :active,
		starts_at = :starts_at, ends_at = :ends_at, min_subtotal = :min_subtotal, max_discount = :max_discount,
		updated_at = :updated_at
		WHERE code = :code`, toCouponRow(coupon))
	if err != nil {
		return errors.Wrap(err, "update coupon")
	}
	return r.requireAffected(ctx, res, coupon.Code)
}

func (r *couponRepository) Delete(ctx context.Context, code string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM coupons WHERE code = ?`, code)
	if err != nil {
		return errors.Wrap(err, "delete coupon")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "delete coupon")
	}
	if affected == 0 {
		return model.ErrCouponNotFound
	}
	return nil
}

// requireAffected tells a missing coupon apart from an update that changed nothing.
func (r *couponRepository) requireAffected(ctx context.Context, res sql.Result, code string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "update coupon")
	}
	if affected > 0 {
		return nil
	}
	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM coupons WHERE code = ?)`, code); err != nil {
		return errors.Wrap(err, "check coupon")
	}
	if !exists {
		return model.ErrCouponNotFound
	}
	return nil
}

func toCouponRow(c *model.Coupon) couponRow {
	return couponRow{
		Code:        c.Code,
		Label:       c.Label,
		Description: c.Description,
		Type:        string(c.Type),
		Value:       c.Value,
		Active:      c.Active,
		StartsAt:    c.StartsAt,
		EndsAt:      c.EndsAt,
		MinSubtotal: nullDecimal(c.MinSubtotal),
		MaxDiscount: nullDecimal(c.MaxDiscount),
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

func fromCouponRow(row couponRow) *model.Coupon {
	return &model.Coupon{
		Code:        row.Code,
		Label:       row.Label,
		Description: row.Description,
		Type:        model.DiscountType(row.Type),
		Value:       row.Value,
		Active:      row.Active,
		StartsAt:    utcPtr(row.StartsAt),
		EndsAt:      utcPtr(row.EndsAt),
		MinSubtotal: decimalPtr(row.MinSubtotal),
		MaxDiscount: decimalPtr(row.MaxDiscount),
		CreatedAt:   row.CreatedAt.UTC(),
		UpdatedAt:   row.UpdatedAt.UTC(),
	}
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}

func decimalPtr(d decimal.NullDecimal) *decimal.Decimal {
	if !d.Valid {
		return nil
	}
	v := d.Decimal
	return &v
}
