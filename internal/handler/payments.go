package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/loop2cod/madin-fee-engine/internal/domain"
	"github.com/loop2cod/madin-fee-engine/internal/service"
	"github.com/loop2cod/madin-fee-engine/pkg/response"
)

type PaymentHandler struct {
	service   *service.PaymentService
	validator *validator.Validate
}

func NewPaymentHandler(paymentService *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{
		service:   paymentService,
		validator: newValidator(),
	}
}

// CreateOrder handles POST /api/v1/students/{studentId}/orders
func (h *PaymentHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	studentID := mux.Vars(r)["studentId"]

	var request domain.CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		response.BadRequest(w, "invalid request body", err)
		return
	}
	if err := h.validator.Struct(&request); err != nil {
		response.BadRequest(w, "invalid order request", err)
		return
	}

	order, err := h.service.CreateOrder(r.Context(), studentID, &request)
	if err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Created(w, order)
}

// VerifyPayment handles POST /api/v1/payments/verify
func (h *PaymentHandler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	var request domain.VerifyPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		response.BadRequest(w, "invalid request body", err)
		return
	}
	if err := h.validator.Struct(&request); err != nil {
		response.BadRequest(w, "invalid verification request", err)
		return
	}

	payment, err := h.service.VerifyPayment(r.Context(), &request)
	if err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Success(w, payment)
}

// RecordOfficePayment handles POST /api/v1/students/{studentId}/office-payments
func (h *PaymentHandler) RecordOfficePayment(w http.ResponseWriter, r *http.Request) {
	studentID := mux.Vars(r)["studentId"]

	var request domain.OfficePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		response.BadRequest(w, "invalid request body", err)
		return
	}
	if err := h.validator.Struct(&request); err != nil {
		response.BadRequest(w, "invalid office payment request", err)
		return
	}

	payment, err := h.service.RecordOfficePayment(r.Context(), studentID, &request)
	if err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Created(w, payment)
}

// RefundPayment handles POST /api/v1/payments/{paymentId}/refund
func (h *PaymentHandler) RefundPayment(w http.ResponseWriter, r *http.Request) {
	paymentID, err := uuid.Parse(mux.Vars(r)["paymentId"])
	if err != nil {
		response.BadRequest(w, "invalid payment id", err)
		return
	}

	var request domain.RefundPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		response.BadRequest(w, "invalid request body", err)
		return
	}
	if err := h.validator.Struct(&request); err != nil {
		response.BadRequest(w, "invalid refund request", err)
		return
	}

	payment, err := h.service.RefundPayment(r.Context(), paymentID, request.Amount)
	if err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Success(w, payment)
}

// ListPayments handles GET /api/v1/students/{studentId}/payments
func (h *PaymentHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	studentID := mux.Vars(r)["studentId"]

	payments, err := h.service.ListPayments(r.Context(), studentID)
	if err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Success(w, payments)
}
