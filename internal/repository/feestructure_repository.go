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

type feeStructureRepository struct {
	db *sqlx.DB
}

func NewFeeStructureRepository(db *sqlx.DB) FeeStructureRepository {
	return &feeStructureRepository{db: db}
}

// feeStructureRow mirrors the fee_structures table; the semester breakdown is
// stored as JSONB.
type feeStructureRow struct {
	ID           uuid.UUID       `db:"id"`
	Program      string          `db:"program"`
	AcademicYear string          `db:"academic_year"`
	Semesters    []byte          `db:"semesters"`
	GrandTotal   decimal.Decimal `db:"grand_total"`
	HostelFee    decimal.Decimal `db:"hostel_fee"`
	IsActive     bool            `db:"is_active"`
	CreatedAt    time.Time       `db:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at"`
}

func (r feeStructureRow) toDomain() (*domain.FeeStructure, error) {
	var semesters []domain.SemesterFees
	if err := json.Unmarshal(r.Semesters, &semesters); err != nil {
		return nil, err
	}
	return &domain.FeeStructure{
		ID:           r.ID,
		Program:      r.Program,
		AcademicYear: r.AcademicYear,
		Semesters:    semesters,
		GrandTotal:   r.GrandTotal,
		HostelFee:    r.HostelFee,
		IsActive:     r.IsActive,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}, nil
}

func (r *feeStructureRepository) Create(ctx context.Context, structure *domain.FeeStructure) error {
	semesters, err := json.Marshal(structure.Semesters)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO fee_structures (id, program, academic_year, semesters, grand_total, hostel_fee, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err = r.db.ExecContext(ctx, query,
		structure.ID,
		structure.Program,
		structure.AcademicYear,
		semesters,
		structure.GrandTotal,
		structure.HostelFee,
		structure.IsActive,
		structure.CreatedAt,
		structure.UpdatedAt,
	)

	return err
}

func (r *feeStructureRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.FeeStructure, error) {
	query := `
		SELECT id, program, academic_year, semesters, grand_total, hostel_fee, is_active, created_at, updated_at
		FROM fee_structures
		WHERE id = $1
	`

	var row feeStructureRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		return nil, err
	}

	return row.toDomain()
}

func (r *feeStructureRepository) List(ctx context.Context, program, academicYear string) ([]*domain.FeeStructure, error) {
	query := `
		SELECT id, program, academic_year, semesters, grand_total, hostel_fee, is_active, created_at, updated_at
		FROM fee_structures
		WHERE ($1 = '' OR program = $1)
		  AND ($2 = '' OR academic_year = $2)
		ORDER BY academic_year DESC, program
	`

	var rows []feeStructureRow
	if err := r.db.SelectContext(ctx, &rows, query, program, academicYear); err != nil {
		return nil, err
	}

	structures := make([]*domain.FeeStructure, 0, len(rows))
	for _, row := range rows {
		structure, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		structures = append(structures, structure)
	}

	return structures, nil
}

func (r *feeStructureRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE fee_structures
		SET is_active = false, updated_at = $2
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query, id, time.Now())
	return err
}
