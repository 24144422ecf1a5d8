package service

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"storefront/pkg/domain/model"
)

const defaultCurrency = "INR"

var (
	ErrEmptyCart     = newValidationError("lines[] is required")
	ErrNoValidLines  = newValidationError("No valid product lines")
	ErrMixedCurrency = newValidationError("all products in a cart must share one currency")
)

type LineInput struct {
	ProductID string
	Quantity  int
}

type Quote struct {
	Lines          []model.OrderLine
	Subtotal       decimal.Decimal
	DiscountAmount decimal.Decimal
	Total          decimal.Decimal
	Currency       string
	CouponCode     string
}

type PricingCalculator interface {
	Price(ctx context.Context, lines []LineInput, couponCode string) (*Quote, error)
}

func NewPricingCalculator(products model.ProductRepository, discounts DiscountResolver) PricingCalculator {
	return &pricingCalculator{products: products, discounts: discounts}
}

type pricingCalculator struct {
	products  model.ProductRepository
	discounts DiscountResolver
}

func (c *pricingCalculator) Price(ctx context.Context, lines []LineInput, couponCode string) (*Quote, error) {
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	normalized := normalizeLines(lines)
	if len(normalized) == 0 {
		return nil, ErrNoValidLines
	}

	ids := make([]string, 0, len(normalized))
	for _, l := range normalized {
		ids = append(ids, l.ProductID)
	}
	products, err := c.products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "lookup products")
	}

	quote := &Quote{Subtotal: decimal.Zero}
	for _, l := range normalized {
		p, ok := products[l.ProductID]
		if !ok || !p.Active {
			continue
		}
		currency := p.Currency
		if currency == "" {
			currency = defaultCurrency
		}
		if quote.Currency == "" {
			quote.Currency = currency
		} else if quote.Currency != currency {
			return nil, ErrMixedCurrency
		}

		quote.Lines = append(quote.Lines, l)
		quote.Subtotal = quote.Subtotal.Add(p.Price.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	if len(quote.Lines) == 0 {
		return nil, ErrNoValidLines
	}

	discount, err := c.discounts.Resolve(ctx, couponCode, quote.Subtotal)
	if err != nil {
		return nil, err
	}
	quote.DiscountAmount = discount.Amount
	quote.CouponCode = discount.CouponCode
	quote.Total = decimal.Max(decimal.Zero, quote.Subtotal.Sub(discount.Amount))

	return quote, nil
}

func normalizeLines(lines []LineInput) []model.OrderLine {
	result := make([]model.OrderLine, 0, len(lines))
	for _, l := range lines {
		id := strings.TrimSpace(l.ProductID)
		if id == "" || l.Quantity < 1 {
			continue
		}
		result = append(result, model.OrderLine{ProductID: id, Quantity: l.Quantity})
	}
	return result
}
