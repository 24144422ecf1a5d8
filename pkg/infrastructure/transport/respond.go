package transport

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"storefront/pkg/domain/model"
)

const customerHeader = "X-Customer-ID"

var (
	errMalformedBody    = requestError("malformed request body")
	errInvalidCustomer  = requestError("X-Customer-ID must be a uuid")
	errInvalidAction    = requestError("action must be approve or reject")
	errCustomerRequired = errors.New("X-Customer-ID header is required")
)

// requestError is a validation failure detected before the request reaches a service.
type requestError string

func (e requestError) Error() string { return string(e) }
func (e requestError) Unwrap() error { return model.ErrValidation }

type errorResponse struct {
	Message string `json:"message"`
	OrderID string `json:"orderId,omitempty"`
}

type okResponse struct {
	OK bool `json:"ok"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(body)
}

func statusOf(err error) int {
	if errors.Is(err, errCustomerRequired) {
		return http.StatusUnauthorized
	}
	switch model.Category(err) {
	case model.ErrValidation, model.ErrPrecondition, model.ErrIntegrity:
		return http.StatusBadRequest
	case model.ErrNotFound:
		return http.StatusNotFound
	case model.ErrConflict:
		return http.StatusConflict
	case model.ErrExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeError answers with the error's own message for client errors. Internal failures are
// logged in full but answered with a generic message.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error, orderID string) {
	status := statusOf(err)
	entry := h.logger.WithError(err).WithFields(log.Fields{
		"method":   r.Method,
		"url":      r.URL.Path,
		"status":   status,
		"category": model.CategoryName(err),
	})

	message := err.Error()
	switch model.Category(err) {
	case model.ErrExternal, model.ErrIntegrity:
		entry.Error("request failed")
	case nil:
		if status == http.StatusUnauthorized {
			entry.Warn("request rejected")
			break
		}
		entry.Error("request failed")
		message = "internal server error"
	default:
		entry.Warn("request rejected")
	}
	writeJSON(w, status, errorResponse{Message: message, OrderID: orderID})
}

func decodeBody(r *http.Request, dst interface{}) error {
	if r.Body == nil {
		return errMalformedBody
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errMalformedBody
	}
	return nil
}

// customerID reads the caller identity set by the upstream auth layer. A missing header is
// uuid.Nil, which the order service treats as a guest.
func customerID(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(r.Header.Get(customerHeader))
	if raw == "" {
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, errInvalidCustomer
	}
	return id, nil
}

func requireCustomer(r *http.Request) (uuid.UUID, error) {
	id, err := customerID(r)
	if err != nil {
		return uuid.Nil, err
	}
	if id == uuid.Nil {
		return uuid.Nil, errCustomerRequired
	}
	return id, nil
}
