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

type FeeHandler struct {
	service   *service.FeeService
	validator *validator.Validate
}

func NewFeeHandler(feeService *service.FeeService) *FeeHandler {
	return &FeeHandler{
		service:   feeService,
		validator: newValidator(),
	}
}

// CreateFeeStructure handles POST /api/v1/fee-structures
func (h *FeeHandler) CreateFeeStructure(w http.ResponseWriter, r *http.Request) {
	var request domain.CreateFeeStructureRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		response.BadRequest(w, "invalid request body", err)
		return
	}
	if err := h.validator.Struct(&request); err != nil {
		response.BadRequest(w, "invalid fee structure", err)
		return
	}

	structure, err := h.service.CreateFeeStructure(r.Context(), &request)
	if err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Created(w, structure)
}

// GetFeeStructure handles GET /api/v1/fee-structures/{id}
func (h *FeeHandler) GetFeeStructure(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		response.BadRequest(w, "invalid fee structure id", err)
		return
	}

	structure, err := h.service.GetFeeStructure(r.Context(), id)
	if err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Success(w, structure)
}

// ListFeeStructures handles GET /api/v1/fee-structures
func (h *FeeHandler) ListFeeStructures(w http.ResponseWriter, r *http.Request) {
	program := r.URL.Query().Get("program")
	academicYear := r.URL.Query().Get("academic_year")

	structures, err := h.service.ListFeeStructures(r.Context(), program, academicYear)
	if err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Success(w, structures)
}

// DeactivateFeeStructure handles DELETE /api/v1/fee-structures/{id}
func (h *FeeHandler) DeactivateFeeStructure(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		response.BadRequest(w, "invalid fee structure id", err)
		return
	}

	if err := h.service.DeactivateFeeStructure(r.Context(), id); err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Success(w, map[string]string{"id": id.String(), "status": "deactivated"})
}

// AssignStructure handles POST /api/v1/students/{studentId}/assignment
func (h *FeeHandler) AssignStructure(w http.ResponseWriter, r *http.Request) {
	studentID := mux.Vars(r)["studentId"]

	var request domain.AssignFeeStructureRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		response.BadRequest(w, "invalid request body", err)
		return
	}
	if err := h.validator.Struct(&request); err != nil {
		response.BadRequest(w, "invalid assignment request", err)
		return
	}

	assignment, err := h.service.AssignStructure(r.Context(), studentID, &request)
	if err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Created(w, assignment)
}

// GetAssignment handles GET /api/v1/students/{studentId}/assignment
func (h *FeeHandler) GetAssignment(w http.ResponseWriter, r *http.Request) {
	studentID := mux.Vars(r)["studentId"]

	assignment, err := h.service.GetAssignment(r.Context(), studentID)
	if err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Success(w, assignment)
}

// AddCustomization handles POST /api/v1/students/{studentId}/assignment/customizations
func (h *FeeHandler) AddCustomization(w http.ResponseWriter, r *http.Request) {
	studentID := mux.Vars(r)["studentId"]

	var request domain.AddCustomizationRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		response.BadRequest(w, "invalid request body", err)
		return
	}
	if err := h.validator.Struct(&request); err != nil {
		response.BadRequest(w, "invalid customization request", err)
		return
	}

	assignment, err := h.service.AddCustomization(r.Context(), studentID, &request)
	if err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Created(w, assignment)
}

// GetPaymentStatus handles GET /api/v1/students/{studentId}/payment-status
func (h *FeeHandler) GetPaymentStatus(w http.ResponseWriter, r *http.Request) {
	studentID := mux.Vars(r)["studentId"]

	status, err := h.service.GetPaymentStatus(r.Context(), studentID)
	if err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Success(w, status)
}
