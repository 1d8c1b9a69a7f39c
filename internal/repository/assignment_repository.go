package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/loop2cod/madin-fee-engine/internal/domain"
)

type assignmentRepository struct {
	db *sqlx.DB
}

func NewAssignmentRepository(db *sqlx.DB) AssignmentRepository {
	return &assignmentRepository{db: db}
}

type assignmentRow struct {
	ID              uuid.UUID `db:"id"`
	StudentID       string    `db:"student_id"`
	Snapshot        []byte    `db:"snapshot"`
	AssignedByName  string    `db:"assigned_by_name"`
	AssignedByEmail string    `db:"assigned_by_email"`
	IsActive        bool      `db:"is_active"`
	CreatedAt       time.Time `db:"created_at"`
	UpdatedAt       time.Time `db:"updated_at"`
}

type customizationRow struct {
	ID                uuid.UUID `db:"id"`
	AssignmentID      uuid.UUID `db:"assignment_id"`
	Semester          int       `db:"semester"`
	Overrides         []byte    `db:"overrides"`
	Reason            string    `db:"reason"`
	CustomizedByName  string    `db:"customized_by_name"`
	CustomizedByEmail string    `db:"customized_by_email"`
	CustomizedAt      time.Time `db:"customized_at"`
}

func (r assignmentRow) toDomain() (*domain.FeeAssignment, error) {
	var snapshot domain.FeeStructureSnapshot
	if err := json.Unmarshal(r.Snapshot, &snapshot); err != nil {
		return nil, err
	}
	return &domain.FeeAssignment{
		ID:        r.ID,
		StudentID: r.StudentID,
		Snapshot:  snapshot,
		AssignedBy: domain.Actor{
			Name:  r.AssignedByName,
			Email: r.AssignedByEmail,
		},
		IsActive:  r.IsActive,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}, nil
}

func (r customizationRow) toDomain() (domain.Customization, error) {
	var overrides map[domain.FeeType]decimal.Decimal
	if err := json.Unmarshal(r.Overrides, &overrides); err != nil {
		return domain.Customization{}, err
	}
	return domain.Customization{
		ID:           r.ID,
		AssignmentID: r.AssignmentID,
		Semester:     r.Semester,
		Overrides:    overrides,
		Reason:       r.Reason,
		CustomizedBy: domain.Actor{
			Name:  r.CustomizedByName,
			Email: r.CustomizedByEmail,
		},
		CustomizedAt: r.CustomizedAt,
	}, nil
}

func (r *assignmentRepository) Create(ctx context.Context, assignment *domain.FeeAssignment) error {
	snapshot, err := json.Marshal(assignment.Snapshot)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO fee_assignments (id, student_id, snapshot, assigned_by_name, assigned_by_email, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err = r.db.ExecContext(ctx, query,
		assignment.ID,
		assignment.StudentID,
		snapshot,
		assignment.AssignedBy.Name,
		assignment.AssignedBy.Email,
		assignment.IsActive,
		assignment.CreatedAt,
		assignment.UpdatedAt,
	)

	return err
}

func (r *assignmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.FeeAssignment, error) {
	query := `
		SELECT id, student_id, snapshot, assigned_by_name, assigned_by_email, is_active, created_at, updated_at
		FROM fee_assignments
		WHERE id = $1
	`

	var row assignmentRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		return nil, err
	}

	assignment, err := row.toDomain()
	if err != nil {
		return nil, err
	}

	if err := r.loadCustomizations(ctx, assignment); err != nil {
		return nil, err
	}

	return assignment, nil
}

func (r *assignmentRepository) GetActiveByStudentID(ctx context.Context, studentID string) (*domain.FeeAssignment, error) {
	query := `
		SELECT id, student_id, snapshot, assigned_by_name, assigned_by_email, is_active, created_at, updated_at
		FROM fee_assignments
		WHERE student_id = $1 AND is_active = true
	`

	var row assignmentRow
	if err := r.db.GetContext(ctx, &row, query, studentID); err != nil {
		return nil, err
	}

	assignment, err := row.toDomain()
	if err != nil {
		return nil, err
	}

	if err := r.loadCustomizations(ctx, assignment); err != nil {
		return nil, err
	}

	return assignment, nil
}

func (r *assignmentRepository) loadCustomizations(ctx context.Context, assignment *domain.FeeAssignment) error {
	query := `
		SELECT id, assignment_id, semester, overrides, reason, customized_by_name, customized_by_email, customized_at
		FROM fee_customizations
		WHERE assignment_id = $1
		ORDER BY customized_at, id
	`

	var rows []customizationRow
	if err := r.db.SelectContext(ctx, &rows, query, assignment.ID); err != nil {
		return err
	}

	assignment.Customizations = make([]domain.Customization, 0, len(rows))
	for _, row := range rows {
		customization, err := row.toDomain()
		if err != nil {
			return err
		}
		assignment.Customizations = append(assignment.Customizations, customization)
	}

	return nil
}

func (r *assignmentRepository) AppendCustomization(ctx context.Context, customization *domain.Customization) error {
	overrides, err := json.Marshal(customization.Overrides)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO fee_customizations (id, assignment_id, semester, overrides, reason, customized_by_name, customized_by_email, customized_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err = tx.ExecContext(ctx, query,
		customization.ID,
		customization.AssignmentID,
		customization.Semester,
		overrides,
		customization.Reason,
		customization.CustomizedBy.Name,
		customization.CustomizedBy.Email,
		customization.CustomizedAt,
	); err != nil {
		return err
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE fee_assignments SET updated_at = $2 WHERE id = $1`,
		customization.AssignmentID, time.Now(),
	); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *assignmentRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE fee_assignments
		SET is_active = false, updated_at = $2
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query, id, time.Now())
	return err
}
