package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/longtq2501/Tutor-Pro-sub001/internal/models"
)

type CreateStudentInput struct {
	TutorID      int64
	Name         string
	PricePerHour int64
}

type StudentRepository struct {
	db DBTX
}

func NewStudentRepository(db DBTX) *StudentRepository {
	return &StudentRepository{db: db}
}

func (r *StudentRepository) Create(ctx context.Context, input CreateStudentInput) (*models.Student, error) {
	query := `
		INSERT INTO students (tutor_id, name, price_per_hour)
		VALUES ($1, $2, $3)
		RETURNING id, tutor_id, name, price_per_hour, created_at, updated_at
	`
	var student models.Student
	err := r.db.QueryRow(ctx, query, input.TutorID, input.Name, input.PricePerHour).Scan(
		&student.ID,
		&student.TutorID,
		&student.Name,
		&student.PricePerHour,
		&student.CreatedAt,
		&student.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &student, nil
}

func (r *StudentRepository) GetByID(ctx context.Context, id int64) (*models.Student, error) {
	query := `
		SELECT id, tutor_id, name, price_per_hour, created_at, updated_at
		FROM students
		WHERE id = $1
	`
	var student models.Student
	err := r.db.QueryRow(ctx, query, id).Scan(
		&student.ID,
		&student.TutorID,
		&student.Name,
		&student.PricePerHour,
		&student.CreatedAt,
		&student.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &student, nil
}

// List returns a page of students. tutorID 0 means unrestricted.
func (r *StudentRepository) List(ctx context.Context, tutorID int64, offset, limit int) ([]models.Student, int, error) {
	countQuery := `
		SELECT COUNT(*)
		FROM students
		WHERE ($1 = 0 OR tutor_id = $1)
	`
	var total int
	if err := r.db.QueryRow(ctx, countQuery, tutorID).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT id, tutor_id, name, price_per_hour, created_at, updated_at
		FROM students
		WHERE ($1 = 0 OR tutor_id = $1)
		ORDER BY name ASC, id ASC
		OFFSET $2 LIMIT $3
	`
	rows, err := r.db.Query(ctx, query, tutorID, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	students, err := scanStudents(rows)
	if err != nil {
		return nil, 0, err
	}
	return students, total, nil
}

func scanStudents(rows pgx.Rows) ([]models.Student, error) {
	students := make([]models.Student, 0)
	for rows.Next() {
		var student models.Student
		if err := rows.Scan(
			&student.ID,
			&student.TutorID,
			&student.Name,
			&student.PricePerHour,
			&student.CreatedAt,
			&student.UpdatedAt,
		); err != nil {
			return nil, err
		}
		students = append(students, student)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return students, nil
}
