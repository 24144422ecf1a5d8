package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"storefront/pkg/domain/model"
)

const DefaultGatewayTimeout = 10 * time.Second

var (
	ErrVerificationFields   = newValidationError("Missing verification fields")
	ErrGatewayNotConfigured = newExternalError("payment gateway keys are not configured")
	ErrSigningSecretMissing = newExternalError("payment signing secret is not configured")
	ErrNothingToCharge      = newPreconditionError("order total is zero, nothing to charge")
	ErrAlreadySettled       = newPreconditionError("order payment is already settled")
	ErrNoPaymentIntent      = newPreconditionError("no payment intent was created for this order")
	ErrPaymentRefunded      = newPreconditionError("order payment has been refunded")
	ErrGatewayNotRequired   = newPreconditionError("order payment method does not use the gateway")
	ErrGatewayOrderMismatch = newIntegrityError("Gateway order mismatch")
)

var errIntentExists = errors.New("payment intent already stored")

type ChargeRequest struct {
	AmountMinorUnits int64
	Currency         string
	Receipt          string
	Notes            map[string]string
}

type Charge struct {
	ID               string
	AmountMinorUnits int64
	Currency         string
}

// PaymentGateway creates remote charges. Verification never calls it.
type PaymentGateway interface {
	CreateCharge(ctx context.Context, req ChargeRequest) (*Charge, error)
}

// PaymentConfig carries the gateway credentials; it is handed over at construction.
type PaymentConfig struct {
	KeyID   string
	Secret  string
	Timeout time.Duration
}

type PaymentIntent struct {
	OrderID          string
	GatewayOrderID   string
	AmountMinorUnits int64
	Currency         string
	KeyID            string
}

type VerifyPaymentInput struct {
	// OrderID is optional; without it the order is found through GatewayOrderID.
	OrderID        string
	GatewayOrderID string
	PaymentID      string
	Signature      string
}

type PaymentService interface {
	CreatePaymentIntent(ctx context.Context, orderID string) (*PaymentIntent, error)
	VerifyPayment(ctx context.Context, in VerifyPaymentInput) (bool, error)
}

func NewPaymentService(repo model.OrderRepository, gateway PaymentGateway, cfg PaymentConfig, dispatcher EventDispatcher, clock Clock, logger log.FieldLogger) PaymentService {
	if clock == nil {
		clock = systemClock
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	if dispatcher == nil {
		dispatcher = nopDispatcher{}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultGatewayTimeout
	}
	return &paymentService{
		orderWriter: orderWriter{repo: repo, dispatcher: dispatcher, clock: clock, logger: logger},
		gateway:     gateway,
		cfg:         cfg,
	}
}

type paymentService struct {
	orderWriter
	gateway PaymentGateway
	cfg     PaymentConfig
}

func (s *paymentService) CreatePaymentIntent(ctx context.Context, orderID string) (*PaymentIntent, error) {
	order, err := s.repo.Find(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := checkChargeable(order); err != nil {
		return nil, err
	}
	if !order.Payment.Method.RequiresGateway() {
		return nil, ErrGatewayNotRequired
	}
	if order.Payment.GatewayOrderID != "" {
		return s.intentOf(order), nil
	}
	if s.gateway == nil || s.cfg.KeyID == "" || s.cfg.Secret == "" {
		return nil, ErrGatewayNotConfigured
	}

	amount := MinorUnits(order.Total)
	if amount <= 0 {
		return nil, ErrNothingToCharge
	}

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()
	charge, err := s.gateway.CreateCharge(callCtx, ChargeRequest{
		AmountMinorUnits: amount,
		Currency:         order.Currency,
		Receipt:          order.OrderID,
		Notes:            map[string]string{"internalOrderId": order.OrderID},
	})
	if err != nil {
		if model.Category(err) == nil {
			err = fmt.Errorf("payment gateway: %w: %w", model.ErrExternal, err)
		}
		s.logger.WithError(err).WithFields(log.Fields{"orderId": order.OrderID, "category": "external"}).Error("failed to create payment intent")
		return nil, err
	}

	updated, err := s.mutate(ctx, order.OrderID, uuid.Nil, func(o *model.Order, _ time.Time) (Event, error) {
		if o.Payment.GatewayOrderID != "" {
			return nil, errIntentExists
		}
		if err := checkChargeable(o); err != nil {
			return nil, err
		}
		o.Payment.GatewayOrderID = charge.ID
		if o.Payment.Gateway == "" {
			o.Payment.Gateway = string(model.PaymentMethodRazorpay)
		}
		return model.PaymentIntentCreated{
			OrderID:          o.OrderID,
			GatewayOrderID:   charge.ID,
			AmountMinorUnits: charge.AmountMinorUnits,
			Currency:         charge.Currency,
		}, nil
	})
	if errors.Is(err, errIntentExists) {
		// A concurrent call stored its intent first; hand that one back.
		current, findErr := s.repo.Find(ctx, order.OrderID)
		if findErr != nil {
			return nil, findErr
		}
		return s.intentOf(current), nil
	}
	if err != nil {
		return nil, err
	}

	intent := s.intentOf(updated)
	intent.AmountMinorUnits = charge.AmountMinorUnits
	if charge.Currency != "" {
		intent.Currency = charge.Currency
	}
	return intent, nil
}

func (s *paymentService) intentOf(o *model.Order) *PaymentIntent {
	return &PaymentIntent{
		OrderID:          o.OrderID,
		GatewayOrderID:   o.Payment.GatewayOrderID,
		AmountMinorUnits: MinorUnits(o.Total),
		Currency:         o.Currency,
		KeyID:            s.cfg.KeyID,
	}
}

func checkChargeable(o *model.Order) error {
	if o.OrderStatus == model.OrderCancelled {
		return ErrOrderCancelled
	}
	if o.PaymentStatus == model.PaymentPaid || o.PaymentStatus == model.PaymentRefunded {
		return ErrAlreadySettled
	}
	return nil
}

func (s *paymentService) VerifyPayment(ctx context.Context, in VerifyPaymentInput) (bool, error) {
	in.OrderID = strings.TrimSpace(in.OrderID)
	if in.GatewayOrderID == "" || in.PaymentID == "" || in.Signature == "" {
		return false, ErrVerificationFields
	}
	if s.cfg.Secret == "" {
		s.logger.WithField("category", "external").Error("payment verification attempted without a signing secret")
		return false, ErrSigningSecretMissing
	}

	orderID := in.OrderID
	if orderID == "" {
		order, err := s.repo.FindByGatewayOrderID(ctx, in.GatewayOrderID)
		if err != nil {
			return false, err
		}
		orderID = order.OrderID
	}

	var ok bool
	_, err := s.mutate(ctx, orderID, uuid.Nil, func(o *model.Order, _ time.Time) (Event, error) {
		stored := o.Payment.GatewayOrderID
		if stored == "" {
			return nil, ErrNoPaymentIntent
		}
		if stored != in.GatewayOrderID {
			s.logger.WithFields(log.Fields{
				"orderId":  o.OrderID,
				"category": "integrity",
			}).Warn("payment callback references a different gateway order")
			return nil, ErrGatewayOrderMismatch
		}
		if o.PaymentStatus == model.PaymentRefunded {
			return nil, ErrPaymentRefunded
		}

		expected := Sign(s.cfg.Secret, in.GatewayOrderID, in.PaymentID)
		ok = hmac.Equal([]byte(expected), []byte(in.Signature))
		if !ok && o.PaymentStatus == model.PaymentPaid {
			// A forged or stale callback never downgrades a settled payment.
			return nil, ErrAlreadySettled
		}

		o.Payment.GatewayPaymentID = in.PaymentID
		o.Payment.Signature = in.Signature
		if !ok {
			o.PaymentStatus = model.PaymentFailed
			s.logger.WithFields(log.Fields{
				"orderId":  o.OrderID,
				"category": "integrity",
			}).Warn("payment signature mismatch")
			return model.PaymentRejected{OrderID: o.OrderID, GatewayPaymentID: in.PaymentID, Reason: "signature mismatch"}, nil
		}

		// Money that arrives after a cancellation goes straight back.
		if o.OrderStatus == model.OrderCancelled {
			o.PaymentStatus = model.PaymentRefunded
		} else {
			o.PaymentStatus = model.PaymentPaid
		}
		return model.PaymentVerified{OrderID: o.OrderID, GatewayPaymentID: in.PaymentID}, nil
	})
	if err != nil {
		return false, err
	}
	return ok, nil
}

// Sign computes the hex HMAC-SHA256 of "<gatewayOrderID>|<paymentID>".
func Sign(secret, gatewayOrderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(gatewayOrderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// MinorUnits converts an amount to the currency's smallest unit, rounding half away from zero.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(hundred).Round(0).IntPart()
}
