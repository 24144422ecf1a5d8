package transport

import (
	"net/http"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"storefront/pkg/domain/service"
)

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	customer, err := customerID(r)
	if err != nil {
		h.writeError(w, r, err, "")
		return
	}
	var req createOrderRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, r, err, "")
		return
	}
	in := req.toInput()
	in.CustomerID = customer

	result, err := h.services.Checkout.Checkout(r.Context(), in)
	if err != nil {
		// The order may already exist when only the payment intent failed; the client retries
		// the intent against the returned order id.
		orderID := ""
		if result != nil && result.Order != nil {
			orderID = result.Order.OrderID
		}
		h.writeError(w, r, err, orderID)
		return
	}

	h.logger.WithFields(log.Fields{"orderId": result.Order.OrderID, "total": result.Order.Total.String()}).Info("order placed")
	writeJSON(w, http.StatusCreated, checkoutResponse{
		Order:         toOrderResponse(result.Order),
		PaymentIntent: toIntentResponse(result.Intent),
	})
}

func (h *Handler) myOrders(w http.ResponseWriter, r *http.Request) {
	customer, err := requireCustomer(r)
	if err != nil {
		h.writeError(w, r, err, "")
		return
	}
	orders, err := h.services.Orders.ListCustomerOrders(r.Context(), customer)
	if err != nil {
		h.writeError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, toOrderList(orders))
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.services.Orders.ListOrders(r.Context())
	if err != nil {
		h.writeError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, toOrderList(orders))
}

func (h *Handler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	h.customerTransition(w, r, func(in *service.TransitionInput) error {
		in.Action = service.ActionCancel
		return nil
	})
}

func (h *Handler) requestReturn(w http.ResponseWriter, r *http.Request) {
	h.customerTransition(w, r, func(in *service.TransitionInput) error {
		return h.subRequest(r, in, service.ActionRequestReturn)
	})
}

func (h *Handler) requestReplacement(w http.ResponseWriter, r *http.Request) {
	h.customerTransition(w, r, func(in *service.TransitionInput) error {
		return h.subRequest(r, in, service.ActionRequestReplacement)
	})
}

func (h *Handler) subRequest(r *http.Request, in *service.TransitionInput, action service.Action) error {
	var body subRequestInput
	if err := decodeBody(r, &body); err != nil {
		return err
	}
	in.Action = action
	in.Reason = body.Reason
	in.Description = body.Description
	return nil
}

// customerTransition runs a transition scoped to the calling customer; orders of other
// customers answer not found.
func (h *Handler) customerTransition(w http.ResponseWriter, r *http.Request, build func(in *service.TransitionInput) error) {
	orderID := mux.Vars(r)["orderId"]
	customer, err := requireCustomer(r)
	if err != nil {
		h.writeError(w, r, err, "")
		return
	}
	in := service.TransitionInput{CustomerID: customer}
	if err := build(&in); err != nil {
		h.writeError(w, r, err, "")
		return
	}
	h.transition(w, r, orderID, in)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, orderID string, in service.TransitionInput) {
	order, err := h.services.Orders.Transition(r.Context(), orderID, in)
	if err != nil {
		h.writeError(w, r, err, "")
		return
	}
	h.logger.WithFields(log.Fields{
		"orderId":     order.OrderID,
		"action":      in.Action,
		"orderStatus": order.OrderStatus,
	}).Info("order updated")
	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

func (h *Handler) overrideStatuses(w http.ResponseWriter, r *http.Request) {
	var req overrideRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, r, err, "")
		return
	}
	h.transition(w, r, mux.Vars(r)["orderId"], service.TransitionInput{
		Action: service.ActionSetStatuses,
		Statuses: service.StatusOverride{
			OrderStatus:    req.OrderStatus,
			PaymentStatus:  req.PaymentStatus,
			DeliveryStatus: req.DeliveryStatus,
		},
	})
}

func (h *Handler) decideReturn(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, service.ActionApproveReturn, service.ActionRejectReturn)
}

func (h *Handler) decideReplacement(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, service.ActionApproveReplacement, service.ActionRejectReplacement)
}

func (h *Handler) decide(w http.ResponseWriter, r *http.Request, approve, reject service.Action) {
	var req decisionRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, r, err, "")
		return
	}
	in := service.TransitionInput{RejectionReason: req.RejectionReason}
	switch req.Action {
	case "approve":
		in.Action = approve
	case "reject":
		in.Action = reject
	default:
		h.writeError(w, r, errInvalidAction, "")
		return
	}
	h.transition(w, r, mux.Vars(r)["orderId"], in)
}

func (h *Handler) createPaymentIntent(w http.ResponseWriter, r *http.Request) {
	orderID := mux.Vars(r)["orderId"]
	intent, err := h.services.Payments.CreatePaymentIntent(r.Context(), orderID)
	if err != nil {
		h.writeError(w, r, err, orderID)
		return
	}
	writeJSON(w, http.StatusOK, toIntentResponse(intent))
}

func (h *Handler) verifyPayment(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, r, err, "")
		return
	}
	ok, err := h.services.Payments.VerifyPayment(r.Context(), service.VerifyPaymentInput{
		OrderID:        req.OrderID,
		GatewayOrderID: req.GatewayOrderID,
		PaymentID:      req.PaymentID,
		Signature:      req.Signature,
	})
	if err != nil {
		h.writeError(w, r, err, req.OrderID)
		return
	}
	writeJSON(w, http.StatusOK, okResponse{OK: ok})
}
