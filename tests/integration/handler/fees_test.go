package handler

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/loop2cod/madin-fee-engine/internal/domain"
	"github.com/loop2cod/madin-fee-engine/internal/handler"
	"github.com/loop2cod/madin-fee-engine/internal/service"
	"github.com/loop2cod/madin-fee-engine/pkg/response"
	"github.com/loop2cod/madin-fee-engine/tests/mocks"
)

const testStudentID = "MDN2026001"

func feeRouter(structureRepo *mocks.MockFeeStructureRepository, assignmentRepo *mocks.MockAssignmentRepository, paymentRepo *mocks.MockPaymentRepository) *mux.Router {
	svc := service.NewFeeService(structureRepo, assignmentRepo, paymentRepo)
	h := handler.NewFeeHandler(svc)

	router := mux.NewRouter()
	router.HandleFunc("/api/v1/fee-structures", h.CreateFeeStructure).Methods("POST")
	router.HandleFunc("/api/v1/fee-structures/{id}", h.GetFeeStructure).Methods("GET")
	router.HandleFunc("/api/v1/students/{studentId}/assignment", h.AssignStructure).Methods("POST")
	router.HandleFunc("/api/v1/students/{studentId}/assignment/customizations", h.AddCustomization).Methods("POST")
	router.HandleFunc("/api/v1/students/{studentId}/payment-status", h.GetPaymentStatus).Methods("GET")
	return router
}

func activeAssignment() *domain.FeeAssignment {
	fees := domain.FeeBreakdown{
		AdmissionFee: decimal.NewFromInt(5000),
		TuitionFee:   decimal.NewFromInt(20000),
	}
	now := time.Now()
	return &domain.FeeAssignment{
		ID:        uuid.New(),
		StudentID: testStudentID,
		Snapshot: domain.FeeStructureSnapshot{
			StructureID:  uuid.New(),
			Program:      "BA English",
			AcademicYear: "2026-27",
			Semesters: []domain.SemesterFees{
				{Semester: 1, SemesterName: "Semester 1", Fees: fees, Total: fees.Total()},
			},
			GrandTotal: fees.Total(),
		},
		AssignedBy: domain.Actor{Name: "Registrar", Email: "registrar@madin.example"},
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) response.Response {
	t.Helper()
	var resp response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestFeeHandler_CreateFeeStructure(t *testing.T) {
	tests := []struct {
		name           string
		body           interface{}
		setupMocks     func(*mocks.MockFeeStructureRepository)
		expectedStatus int
	}{
		{
			name: "created",
			body: domain.CreateFeeStructureRequest{
				Program:      "BA English",
				AcademicYear: "2026-27",
				Semesters: []domain.CreateSemesterFeesRequest{
					{
						Semester:     1,
						SemesterName: "Semester 1",
						Fees:         domain.FeeBreakdown{TuitionFee: decimal.NewFromInt(20000)},
					},
				},
			},
			setupMocks: func(structureRepo *mocks.MockFeeStructureRepository) {
				structureRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "missing program rejected by validation",
			body:           map[string]interface{}{"academic_year": "2026-27"},
			setupMocks:     func(structureRepo *mocks.MockFeeStructureRepository) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "malformed body",
			body:           "not json",
			setupMocks:     func(structureRepo *mocks.MockFeeStructureRepository) {},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			structureRepo := new(mocks.MockFeeStructureRepository)
			tt.setupMocks(structureRepo)
			router := feeRouter(structureRepo, new(mocks.MockAssignmentRepository), new(mocks.MockPaymentRepository))

			var body bytes.Buffer
			if s, ok := tt.body.(string); ok {
				body.WriteString(s)
			} else {
				require.NoError(t, json.NewEncoder(&body).Encode(tt.body))
			}

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest("POST", "/api/v1/fee-structures", &body))

			assert.Equal(t, tt.expectedStatus, w.Code)
			resp := decodeResponse(t, w)
			assert.Equal(t, tt.expectedStatus == http.StatusCreated, resp.Success)
			structureRepo.AssertExpectations(t)
		})
	}
}

func TestFeeHandler_GetFeeStructure_NotFound(t *testing.T) {
	structureRepo := new(mocks.MockFeeStructureRepository)
	id := uuid.New()
	structureRepo.On("GetByID", mock.Anything, id).Return(nil, sql.ErrNoRows)
	router := feeRouter(structureRepo, new(mocks.MockAssignmentRepository), new(mocks.MockPaymentRepository))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/fee-structures/"+id.String(), nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	resp := decodeResponse(t, w)
	assert.Equal(t, "NOT_FOUND", resp.Code)
}

func TestFeeHandler_AssignStructure_Conflict(t *testing.T) {
	assignmentRepo := new(mocks.MockAssignmentRepository)
	assignmentRepo.On("GetActiveByStudentID", mock.Anything, testStudentID).Return(activeAssignment(), nil)
	router := feeRouter(new(mocks.MockFeeStructureRepository), assignmentRepo, new(mocks.MockPaymentRepository))

	body, _ := json.Marshal(domain.AssignFeeStructureRequest{
		StructureID: uuid.New(),
		AssignedBy:  domain.Actor{Name: "Registrar", Email: "registrar@madin.example"},
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("POST", "/api/v1/students/"+testStudentID+"/assignment", bytes.NewReader(body)))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeResponse(t, w)
	assert.Contains(t, resp.Message, "already has an active fee assignment")
}

func TestFeeHandler_AddCustomization(t *testing.T) {
	assignmentRepo := new(mocks.MockAssignmentRepository)
	assignmentRepo.On("GetActiveByStudentID", mock.Anything, testStudentID).Return(activeAssignment(), nil)
	assignmentRepo.On("AppendCustomization", mock.Anything, mock.MatchedBy(func(c *domain.Customization) bool {
		return c.Semester == 1 && c.Overrides[domain.FeeTypeTuition].Equal(decimal.NewFromInt(18000))
	})).Return(nil)
	router := feeRouter(new(mocks.MockFeeStructureRepository), assignmentRepo, new(mocks.MockPaymentRepository))

	body, _ := json.Marshal(domain.AddCustomizationRequest{
		Semester:     1,
		Overrides:    map[domain.FeeType]decimal.Decimal{domain.FeeTypeTuition: decimal.NewFromInt(18000)},
		Reason:       "scholarship adjustment",
		CustomizedBy: domain.Actor{Name: "Accounts", Email: "accounts@madin.example"},
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("POST", "/api/v1/students/"+testStudentID+"/assignment/customizations", bytes.NewReader(body)))

	assert.Equal(t, http.StatusCreated, w.Code)
	assignmentRepo.AssertExpectations(t)
}

func TestFeeHandler_GetPaymentStatus(t *testing.T) {
	assignmentRepo := new(mocks.MockAssignmentRepository)
	paymentRepo := new(mocks.MockPaymentRepository)
	assignmentRepo.On("GetActiveByStudentID", mock.Anything, testStudentID).Return(activeAssignment(), nil)
	paymentRepo.On("GetByStudentID", mock.Anything, testStudentID).Return([]*domain.Payment{}, nil)
	router := feeRouter(new(mocks.MockFeeStructureRepository), assignmentRepo, paymentRepo)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/students/"+testStudentID+"/payment-status", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	require.True(t, resp.Success)

	data, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var status struct {
		StudentID   string `json:"student_id"`
		Status      string `json:"status"`
		Outstanding string `json:"outstanding"`
	}
	require.NoError(t, json.Unmarshal(data, &status))
	assert.Equal(t, testStudentID, status.StudentID)
	assert.Equal(t, "unpaid", status.Status)
	assert.Equal(t, "25000", status.Outstanding)
}
