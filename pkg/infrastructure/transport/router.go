package transport

import (
	"net/http"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"storefront/pkg/domain/service"
)

type Services struct {
	Orders    service.OrderService
	Payments  service.PaymentService
	Checkout  service.CheckoutService
	Coupons   service.CouponService
	Discounts service.DiscountResolver
}

type Handler struct {
	services Services
	logger   log.FieldLogger
}

func Router(services Services, logger log.FieldLogger) http.Handler {
	if logger == nil {
		logger = log.StandardLogger()
	}
	handler := &Handler{services: services, logger: logger}

	r := mux.NewRouter()
	r.HandleFunc("/health", handler.health).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/coupons", handler.listUsableCoupons).Methods(http.MethodGet)
	api.HandleFunc("/coupons/validate", handler.validateCoupon).Methods(http.MethodPost)

	api.HandleFunc("/orders", handler.createOrder).Methods(http.MethodPost)
	api.HandleFunc("/orders/me", handler.myOrders).Methods(http.MethodGet)
	api.HandleFunc("/orders/{orderId}/cancel", handler.cancelOrder).Methods(http.MethodPost)
	api.HandleFunc("/orders/{orderId}/return", handler.requestReturn).Methods(http.MethodPost)
	api.HandleFunc("/orders/{orderId}/replace", handler.requestReplacement).Methods(http.MethodPost)
	api.HandleFunc("/orders/{orderId}/payment-intent", handler.createPaymentIntent).Methods(http.MethodPost)
	api.HandleFunc("/payments/verify", handler.verifyPayment).Methods(http.MethodPost)

	admin := api.PathPrefix("/admin").Subrouter()
	admin.HandleFunc("/orders", handler.listOrders).Methods(http.MethodGet)
	admin.HandleFunc("/orders/{orderId}", handler.overrideStatuses).Methods(http.MethodPut)
	admin.HandleFunc("/orders/{orderId}/return", handler.decideReturn).Methods(http.MethodPut)
	admin.HandleFunc("/orders/{orderId}/replace", handler.decideReplacement).Methods(http.MethodPut)
	admin.HandleFunc("/coupons", handler.listCoupons).Methods(http.MethodGet)
	admin.HandleFunc("/coupons", handler.createCoupon).Methods(http.MethodPost)
	admin.HandleFunc("/coupons/{code}", handler.updateCoupon).Methods(http.MethodPut)
	admin.HandleFunc("/coupons/{code}/disable", handler.disableCoupon).Methods(http.MethodPost)
	admin.HandleFunc("/coupons/{code}", handler.deleteCoupon).Methods(http.MethodDelete)

	return logMiddleware(logger, r)
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

func logMiddleware(logger log.FieldLogger, h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.WithFields(log.Fields{
			"method":     r.Method,
			"url":        r.URL,
			"remoteAddr": r.RemoteAddr,
			"userAgent":  r.UserAgent(),
		}).Info("got a new request")
		h.ServeHTTP(w, r)
	})
}
