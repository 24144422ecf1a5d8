package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"

	"storefront/pkg/domain/model"
	"storefront/pkg/domain/service"
)

const DefaultBaseURL = "https://api.razorpay.com"

// maxErrorBody caps how much of a failed response ends up in the error message.
const maxErrorBody = 512

type Config struct {
	KeyID   string
	Secret  string
	BaseURL string
	Timeout time.Duration
}

type createOrderRequest struct {
	Amount         int64             `json:"amount"`
	Currency       string            `json:"currency"`
	Receipt        string            `json:"receipt"`
	PaymentCapture int               `json:"payment_capture"`
	Notes          map[string]string `json:"notes,omitempty"`
}

type createOrderResponse struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
}

type errorResponse struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

// NewRazorpay returns a gateway client that opens orders on the Razorpay Orders API.
func NewRazorpay(cfg Config, client *http.Client) service.PaymentGateway {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &razorpay{cfg: cfg, client: client}
}

type razorpay struct {
	cfg    Config
	client *http.Client
}

func (g *razorpay) CreateCharge(ctx context.Context, req service.ChargeRequest) (*service.Charge, error) {
	body, err := json.Marshal(createOrderRequest{
		Amount:         req.AmountMinorUnits,
		Currency:       req.Currency,
		Receipt:        req.Receipt,
		PaymentCapture: 1,
		Notes:          req.Notes,
	})
	if err != nil {
		return nil, errors.Wrap(err, "encode gateway order")
	}

	url := strings.TrimRight(g.cfg.BaseURL, "/") + "/v1/orders"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "build gateway request")
	}
	httpReq.SetBasicAuth(g.cfg.KeyID, g.cfg.Secret)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: razorpay request: %w", model.ErrExternal, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read razorpay response: %w", model.ErrExternal, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: razorpay returned %d: %s", model.ErrExternal, resp.StatusCode, describeError(payload))
	}

	var created createOrderResponse
	if err := json.Unmarshal(payload, &created); err != nil {
		return nil, fmt.Errorf("%w: decode razorpay response: %w", model.ErrExternal, err)
	}
	if created.ID == "" {
		return nil, fmt.Errorf("%w: razorpay response has no order id", model.ErrExternal)
	}
	return &service.Charge{ID: created.ID, AmountMinorUnits: created.Amount, Currency: created.Currency}, nil
}

func describeError(payload []byte) string {
	var e errorResponse
	if err := json.Unmarshal(payload, &e); err == nil && e.Error.Description != "" {
		return e.Error.Code + " " + e.Error.Description
	}
	if len(payload) > maxErrorBody {
		payload = payload[:maxErrorBody]
	}
	return string(payload)
}
