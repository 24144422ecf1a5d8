package mysql

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"storefront/pkg/domain/model"
)

type productRow struct {
	ID       string          `db:"id"`
	Name     string          `db:"name"`
	Price    decimal.Decimal `db:"price"`
	Currency string          `db:"currency"`
	Active   bool            `db:"active"`
}

func NewProductRepository(db *sqlx.DB) model.ProductRepository {
	return &productRepository{db: db}
}

type productRepository struct {
	db *sqlx.DB
}

func (r *productRepository) FindByIDs(ctx context.Context, ids []string) (map[string]model.Product, error) {
	result := make(map[string]model.Product, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	query, args, err := sqlx.In(`SELECT id, name, price, currency, active FROM products WHERE id IN (?)`, ids)
	if err != nil {
		return nil, errors.Wrap(err, "bind products")
	}
	var rows []productRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "select products")
	}
	for _, row := range rows {
		result[row.ID] = model.Product{
			ID:       row.ID,
			Name:     row.Name,
			Price:    row.Price,
			Currency: row.Currency,
			Active:   row.Active,
		}
	}
	return result, nil
}

type customerRow struct {
	ID    uuid.UUID `db:"id"`
	Name  string    `db:"name"`
	Email string    `db:"email"`
	Phone string    `db:"phone"`
}

// NewCustomerRepository returns the customer store backed by db. now stamps new address book entries.
func NewCustomerRepository(db *sqlx.DB, now func() time.Time) model.CustomerRepository {
	if now == nil {
		now = time.Now
	}
	return &customerRepository{db: db, now: now}
}

type customerRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

func (r *customerRepository) Find(ctx context.Context, id uuid.UUID) (*model.Customer, error) {
	var row customerRow
	err := r.db.GetContext(ctx, &row, `SELECT id, name, email, phone FROM customers WHERE id = ?`, id.String())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrCustomerNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "select customer")
	}
	return &model.Customer{ID: row.ID, Name: row.Name, Email: row.Email, Phone: row.Phone}, nil
}

func (r *customerRepository) SaveAddress(ctx context.Context, id uuid.UUID, address model.DeliveryAddress) error {
	key := addressKey(address)
	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE customers SET phone = ?, default_address_key = ? WHERE id = ?`,
			address.Phone, key, id.String())
		if err != nil {
			return errors.Wrap(err, "update customer")
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return errors.Wrap(err, "update customer")
		}
		if affected == 0 {
			var exists bool
			if err := tx.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM customers WHERE id = ?)`, id.String()); err != nil {
				return errors.Wrap(err, "check customer")
			}
			if !exists {
				return model.ErrCustomerNotFound
			}
		}

		_, err = tx.ExecContext(ctx, `INSERT IGNORE INTO customer_addresses
			(customer_id, address_key, full_name, phone, address_line, city, postal_code, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			id.String(), key, address.FullName, address.Phone, address.AddressLine, address.City, address.PostalCode, r.now().UTC())
		return errors.Wrap(err, "insert customer address")
	})
}

// addressKey dedupes the address book: the same address typed twice maps to one entry.
func addressKey(a model.DeliveryAddress) string {
	normalized := strings.ToLower(strings.Join([]string{a.FullName, a.Phone, a.AddressLine, a.City, a.PostalCode}, "\x1f"))
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}
