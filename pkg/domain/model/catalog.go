package model

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Product struct {
	ID       string
	Name     string
	Price    decimal.Decimal
	Currency string
	Active   bool
}

// ProductRepository is the read side of the catalog.
type ProductRepository interface {
	// FindByIDs returns the products that exist; missing ids are simply absent from the result.
	FindByIDs(ctx context.Context, ids []string) (map[string]Product, error)
}

type Customer struct {
	ID    uuid.UUID
	Name  string
	Email string
	Phone string
}

type CustomerRepository interface {
	Find(ctx context.Context, id uuid.UUID) (*Customer, error)
	// SaveAddress makes address the default, adds it to the address book and updates the phone.
	SaveAddress(ctx context.Context, id uuid.UUID, address DeliveryAddress) error
}
