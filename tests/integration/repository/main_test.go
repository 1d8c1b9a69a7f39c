package repository

import (
	"context"
	"fmt"
	"io/ioutil"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/loop2cod/madin-fee-engine/internal/domain"
	"github.com/loop2cod/madin-fee-engine/internal/repository"
)

var testDB *sqlx.DB

func TestMain(m *testing.M) {
	_ = godotenv.Load("../../../.env")

	databaseURL := os.Getenv("TEST_DATABASE_URL")
	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		fmt.Println("skipping repository integration tests: DATABASE_URL not set")
		os.Exit(0)
	}

	var err error
	testDB, err = sqlx.Connect("postgres", databaseURL)
	if err != nil {
		panic(fmt.Sprintf("Failed to connect to test database: %v", err))
	}

	if err := executeInitSQL(testDB); err != nil {
		panic(fmt.Sprintf("Failed to initialize database schema: %v", err))
	}

	code := m.Run()

	testDB.Close()
	os.Exit(code)
}

func executeInitSQL(db *sqlx.DB) error {
	sqlBytes, err := ioutil.ReadFile("../../../scripts/init.sql")
	if err != nil {
		return fmt.Errorf("failed to read init.sql: %w", err)
	}

	if _, err := db.Exec(string(sqlBytes)); err != nil {
		return fmt.Errorf("failed to execute init.sql: %w", err)
	}

	return nil
}

func setupTestDB(t *testing.T) *sqlx.DB {
	cleanupTestData(testDB)
	return testDB
}

func cleanupTestData(db *sqlx.DB) {
	db.Exec("DELETE FROM payments")
	db.Exec("DELETE FROM fee_customizations")
	db.Exec("DELETE FROM fee_assignments")
	db.Exec("DELETE FROM fee_structures")
}

func newTestStructure() *domain.FeeStructure {
	fees := domain.FeeBreakdown{
		AdmissionFee: decimal.NewFromInt(5000),
		TuitionFee:   decimal.NewFromInt(20000),
	}
	now := time.Now()
	return &domain.FeeStructure{
		ID:           uuid.New(),
		Program:      "BA English",
		AcademicYear: "2026-27",
		Semesters: []domain.SemesterFees{
			{Semester: 1, SemesterName: "Semester 1", Fees: fees, Total: fees.Total()},
		},
		GrandTotal: fees.Total(),
		HostelFee:  decimal.NewFromInt(10000),
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func newTestAssignment(studentID string) *domain.FeeAssignment {
	structure := newTestStructure()
	now := time.Now()
	return &domain.FeeAssignment{
		ID:         uuid.New(),
		StudentID:  studentID,
		Snapshot:   structure.Snapshot(),
		AssignedBy: domain.Actor{Name: "Registrar", Email: "registrar@madin.example"},
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func newTestPayment(assignment *domain.FeeAssignment) *domain.Payment {
	now := time.Now()
	return &domain.Payment{
		ID:           uuid.New(),
		StudentID:    assignment.StudentID,
		AssignmentID: assignment.ID,
		PaymentType:  domain.PaymentTypePartial,
		Breakdown: []domain.BreakdownEntry{
			{Semester: 1, FeeType: domain.FeeTypeTuition, Amount: decimal.NewFromInt(20000)},
		},
		AmountPaid:         decimal.NewFromInt(20000),
		ConvenienceFee:     decimal.NewFromInt(600),
		TotalAmountCharged: decimal.NewFromInt(20600),
		RefundedAmount:     decimal.Zero,
		PaymentStatus:      domain.PaymentStatusPending,
		PaymentMethod:      domain.PaymentMethodRazorpay,
		PaymentSource:      domain.PaymentSourceOnline,
		AcademicYear:       "2026-27",
		PaymentDate:        now,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

func mustCreateAssignment(t *testing.T, ctx context.Context, db *sqlx.DB, studentID string) *domain.FeeAssignment {
	t.Helper()
	assignment := newTestAssignment(studentID)
	repo := repository.NewAssignmentRepository(db)
	require.NoError(t, repo.Create(ctx, assignment))
	return assignment
}
