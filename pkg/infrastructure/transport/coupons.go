package transport

import (
	"io"
	"net/http"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

const maxCouponBody = 64 << 10

func (h *Handler) listUsableCoupons(w http.ResponseWriter, r *http.Request) {
	coupons, err := h.services.Coupons.ListUsableCoupons(r.Context())
	if err != nil {
		h.writeError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, toPublicCouponList(coupons))
}

func (h *Handler) validateCoupon(w http.ResponseWriter, r *http.Request) {
	var req validateCouponRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, r, err, "")
		return
	}
	result, err := h.services.Discounts.Validate(r.Context(), req.Code, req.Subtotal)
	if err != nil {
		h.writeError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, validateCouponResponse{
		Valid:          result.Valid,
		Code:           result.Code,
		Label:          result.Label,
		DiscountAmount: result.DiscountAmount,
		Reason:         string(result.Reason),
		Message:        result.Message,
	})
}

func (h *Handler) listCoupons(w http.ResponseWriter, r *http.Request) {
	coupons, err := h.services.Coupons.ListCoupons(r.Context())
	if err != nil {
		h.writeError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, toCouponList(coupons))
}

func (h *Handler) createCoupon(w http.ResponseWriter, r *http.Request) {
	var req createCouponRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, r, err, "")
		return
	}
	coupon, err := h.services.Coupons.CreateCoupon(r.Context(), req.toInput())
	if err != nil {
		h.writeError(w, r, err, "")
		return
	}
	h.logger.WithField("code", coupon.Code).Info("coupon created")
	writeJSON(w, http.StatusCreated, toCouponResponse(coupon))
}

func (h *Handler) updateCoupon(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxCouponBody))
	if err != nil {
		h.writeError(w, r, errMalformedBody, "")
		return
	}
	patch, err := decodeCouponPatch(body)
	if err != nil {
		h.writeError(w, r, err, "")
		return
	}
	coupon, err := h.services.Coupons.UpdateCoupon(r.Context(), mux.Vars(r)["code"], patch)
	if err != nil {
		h.writeError(w, r, err, "")
		return
	}
	h.logger.WithField("code", coupon.Code).Info("coupon updated")
	writeJSON(w, http.StatusOK, toCouponResponse(coupon))
}

func (h *Handler) disableCoupon(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	if err := h.services.Coupons.DisableCoupon(r.Context(), code); err != nil {
		h.writeError(w, r, err, "")
		return
	}
	h.logger.WithField("code", code).Info("coupon disabled")
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

func (h *Handler) deleteCoupon(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	if err := h.services.Coupons.DeleteCoupon(r.Context(), code); err != nil {
		h.writeError(w, r, err, "")
		return
	}
	h.logger.WithFields(log.Fields{"code": code}).Info("coupon deleted")
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}
