package transport

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"storefront/pkg/domain/model"
	"storefront/pkg/domain/service"
)

type lineDTO struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type addressDTO struct {
	FullName    string `json:"fullName"`
	Phone       string `json:"phone"`
	AddressLine string `json:"addressLine"`
	City        string `json:"city"`
	Pincode     string `json:"pincode"`
}

func (a addressDTO) toModel() model.DeliveryAddress {
	return model.DeliveryAddress{
		FullName:    a.FullName,
		Phone:       a.Phone,
		AddressLine: a.AddressLine,
		City:        a.City,
		PostalCode:  a.Pincode,
	}
}

func toAddressDTO(a model.DeliveryAddress) addressDTO {
	return addressDTO{FullName: a.FullName, Phone: a.Phone, AddressLine: a.AddressLine, City: a.City, Pincode: a.PostalCode}
}

type createOrderRequest struct {
	Lines    []lineDTO  `json:"lines"`
	Delivery addressDTO `json:"delivery"`
	Payment  struct {
		Method string `json:"method"`
	} `json:"payment"`
	Coupon *struct {
		Code string `json:"code"`
	} `json:"coupon"`
	Email string `json:"email"`
}

func (req createOrderRequest) toInput() service.CreateOrderInput {
	in := service.CreateOrderInput{
		Delivery:      req.Delivery.toModel(),
		PaymentMethod: model.PaymentMethod(req.Payment.Method),
		GuestEmail:    req.Email,
	}
	for _, l := range req.Lines {
		in.Lines = append(in.Lines, service.LineInput{ProductID: l.ProductID, Quantity: l.Quantity})
	}
	if req.Coupon != nil {
		in.CouponCode = req.Coupon.Code
	}
	return in
}

type customerDTO struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone"`
}

type distanceDTO struct {
	Km      float64 `json:"km"`
	IsLocal bool    `json:"isLocal"`
}

type paymentDTO struct {
	Method           string `json:"method"`
	Gateway          string `json:"gateway,omitempty"`
	GatewayOrderID   string `json:"gatewayOrderId,omitempty"`
	GatewayPaymentID string `json:"gatewayPaymentId,omitempty"`
}

type subRequestDTO struct {
	Reason          string     `json:"reason"`
	Description     string     `json:"description,omitempty"`
	RequestedAt     time.Time  `json:"requestedAt"`
	ApprovedAt      *time.Time `json:"approvedAt,omitempty"`
	RejectedAt      *time.Time `json:"rejectedAt,omitempty"`
	RejectionReason string     `json:"rejectionReason,omitempty"`
}

func toSubRequestDTO(r *model.SubRequest) *subRequestDTO {
	if r == nil {
		return nil
	}
	return &subRequestDTO{
		Reason:          r.Reason,
		Description:     r.Description,
		RequestedAt:     r.RequestedAt,
		ApprovedAt:      r.ApprovedAt,
		RejectedAt:      r.RejectedAt,
		RejectionReason: r.RejectionReason,
	}
}

type orderResponse struct {
	OrderID            string          `json:"orderId"`
	Customer           customerDTO     `json:"customer"`
	Lines              []lineDTO       `json:"lines"`
	Subtotal           decimal.Decimal `json:"subtotal"`
	DiscountAmount     decimal.Decimal `json:"discountAmount"`
	Total              decimal.Decimal `json:"total"`
	CouponCode         string          `json:"couponCode,omitempty"`
	Currency           string          `json:"currency"`
	Delivery           addressDTO      `json:"delivery"`
	Distance           distanceDTO     `json:"distance"`
	Payment            paymentDTO      `json:"payment"`
	OrderStatus        string          `json:"orderStatus"`
	PaymentStatus      string          `json:"paymentStatus"`
	DeliveryStatus     string          `json:"deliveryStatus"`
	ReturnRequest      *subRequestDTO  `json:"returnRequest,omitempty"`
	ReplacementRequest *subRequestDTO  `json:"replacementRequest,omitempty"`
	DeliveredAt        *time.Time      `json:"deliveredAt,omitempty"`
	CreatedAt          time.Time       `json:"createdAt"`
	UpdatedAt          time.Time       `json:"updatedAt"`
}

func toOrderResponse(o *model.Order) orderResponse {
	lines := make([]lineDTO, 0, len(o.Lines))
	for _, l := range o.Lines {
		lines = append(lines, lineDTO{ProductID: l.ProductID, Quantity: l.Quantity})
	}
	return orderResponse{
		OrderID:        o.OrderID,
		Customer:       customerDTO(o.Customer),
		Lines:          lines,
		Subtotal:       o.Subtotal,
		DiscountAmount: o.DiscountAmount,
		Total:          o.Total,
		CouponCode:     o.CouponCode,
		Currency:       o.Currency,
		Delivery:       toAddressDTO(o.Delivery),
		Distance:       distanceDTO{Km: o.Distance.Kilometers, IsLocal: o.Distance.IsLocal},
		Payment: paymentDTO{
			Method:           string(o.Payment.Method),
			Gateway:          o.Payment.Gateway,
			GatewayOrderID:   o.Payment.GatewayOrderID,
			GatewayPaymentID: o.Payment.GatewayPaymentID,
		},
		OrderStatus:        string(o.OrderStatus),
		PaymentStatus:      string(o.PaymentStatus),
		DeliveryStatus:     string(o.DeliveryStatus),
		ReturnRequest:      toSubRequestDTO(o.ReturnRequest),
		ReplacementRequest: toSubRequestDTO(o.ReplacementRequest),
		DeliveredAt:        o.DeliveredAt,
		CreatedAt:          o.CreatedAt,
		UpdatedAt:          o.UpdatedAt,
	}
}

func toOrderList(orders []model.Order) []orderResponse {
	out := make([]orderResponse, 0, len(orders))
	for i := range orders {
		out = append(out, toOrderResponse(&orders[i]))
	}
	return out
}

type intentResponse struct {
	OrderID        string `json:"orderId"`
	GatewayOrderID string `json:"gatewayOrderId"`
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
	KeyID          string `json:"keyId"`
}

func toIntentResponse(i *service.PaymentIntent) *intentResponse {
	if i == nil {
		return nil
	}
	return &intentResponse{
		OrderID:        i.OrderID,
		GatewayOrderID: i.GatewayOrderID,
		Amount:         i.AmountMinorUnits,
		Currency:       i.Currency,
		KeyID:          i.KeyID,
	}
}

type checkoutResponse struct {
	Order         orderResponse   `json:"order"`
	PaymentIntent *intentResponse `json:"paymentIntent,omitempty"`
}

type subRequestInput struct {
	Reason      string `json:"reason"`
	Description string `json:"description"`
}

type decisionRequest struct {
	Action          string `json:"action"`
	RejectionReason string `json:"rejectionReason"`
}

type overrideRequest struct {
	OrderStatus    *model.OrderStatus    `json:"orderStatus"`
	PaymentStatus  *model.PaymentStatus  `json:"paymentStatus"`
	DeliveryStatus *model.DeliveryStatus `json:"deliveryStatus"`
}

type verifyRequest struct {
	OrderID        string `json:"orderId"`
	GatewayOrderID string `json:"gatewayOrderId"`
	PaymentID      string `json:"paymentId"`
	Signature      string `json:"signature"`
}

type validateCouponRequest struct {
	Code     string          `json:"code"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

type validateCouponResponse struct {
	Valid          bool            `json:"valid"`
	Code           string          `json:"code,omitempty"`
	Label          string          `json:"label,omitempty"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
	Reason         string          `json:"reason,omitempty"`
	Message        string          `json:"message,omitempty"`
}

type couponResponse struct {
	Code        string           `json:"code"`
	Label       string           `json:"label"`
	Description string           `json:"description,omitempty"`
	Type        string           `json:"type"`
	Value       decimal.Decimal  `json:"value"`
	Active      bool             `json:"active"`
	StartsAt    *time.Time       `json:"startsAt,omitempty"`
	EndsAt      *time.Time       `json:"endsAt,omitempty"`
	MinSubtotal *decimal.Decimal `json:"minSubtotal,omitempty"`
	MaxDiscount *decimal.Decimal `json:"maxDiscount,omitempty"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

func toCouponResponse(c *model.Coupon) couponResponse {
	return couponResponse{
		Code:        c.Code,
		Label:       c.Label,
		Description: c.Description,
		Type:        string(c.Type),
		Value:       c.Value,
		Active:      c.Active,
		StartsAt:    c.StartsAt,
		EndsAt:      c.EndsAt,
		MinSubtotal: c.MinSubtotal,
		MaxDiscount: c.MaxDiscount,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

func toCouponList(coupons []model.Coupon) []couponResponse {
	out := make([]couponResponse, 0, len(coupons))
	for i := range coupons {
		out = append(out, toCouponResponse(&coupons[i]))
	}
	return out
}

// publicCouponResponse is what shoppers see of a usable coupon.
type publicCouponResponse struct {
	Code        string `json:"code"`
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
}

func toPublicCouponList(coupons []model.Coupon) []publicCouponResponse {
	out := make([]publicCouponResponse, 0, len(coupons))
	for _, c := range coupons {
		out = append(out, publicCouponResponse{Code: c.Code, Label: c.Label, Description: c.Description})
	}
	return out
}

type createCouponRequest struct {
	Code        string             `json:"code"`
	Label       string             `json:"label"`
	Description string             `json:"description"`
	Type        model.DiscountType `json:"type"`
	Value       *decimal.Decimal   `json:"value"`
	Active      *bool              `json:"active"`
	StartsAt    *time.Time         `json:"startsAt"`
	EndsAt      *time.Time         `json:"endsAt"`
	MinSubtotal *decimal.Decimal   `json:"minSubtotal"`
	MaxDiscount *decimal.Decimal   `json:"maxDiscount"`
}

func (req createCouponRequest) toInput() service.CreateCouponInput {
	return service.CreateCouponInput{
		Code:        req.Code,
		Label:       req.Label,
		Description: req.Description,
		Type:        req.Type,
		Value:       req.Value,
		Active:      req.Active,
		StartsAt:    req.StartsAt,
		EndsAt:      req.EndsAt,
		MinSubtotal: req.MinSubtotal,
		MaxDiscount: req.MaxDiscount,
	}
}

// decodeCouponPatch keeps absent and null apart: an absent field is untouched, null clears it.
func decodeCouponPatch(body []byte) (service.CouponPatch, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return service.CouponPatch{}, errMalformedBody
	}

	var patch service.CouponPatch
	for _, err := range []error{
		patchField(fields, "label", &patch.Label),
		patchField(fields, "description", &patch.Description),
		patchField(fields, "type", &patch.Type),
		patchField(fields, "value", &patch.Value),
		patchField(fields, "active", &patch.Active),
		patchField(fields, "startsAt", &patch.StartsAt),
		patchField(fields, "endsAt", &patch.EndsAt),
		patchField(fields, "minSubtotal", &patch.MinSubtotal),
		patchField(fields, "maxDiscount", &patch.MaxDiscount),
	} {
		if err != nil {
			return service.CouponPatch{}, err
		}
	}
	return patch, nil
}

func patchField[T any](fields map[string]json.RawMessage, key string, dst *service.Optional[T]) error {
	raw, ok := fields[key]
	if !ok {
		return nil
	}
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		*dst = service.Clear[T]()
		return nil
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return errMalformedBody
	}
	*dst = service.Set(v)
	return nil
}
