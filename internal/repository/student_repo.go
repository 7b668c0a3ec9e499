package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/vidyalay/pariksha-api/internal/models"
)

// StudentFilter narrows a directory listing. Membership filters
// (sub-departments, batches) are additionally constrained by DepartmentID
// when it is set.
type StudentFilter struct {
	IDs              []uint
	DepartmentIDs    []uint
	DepartmentID     uint
	SubDepartmentIDs []uint
	BatchIDs         []uint
	Standards        []string
	ActiveOnly       bool
}

// StudentDirectory provides read-only access to the student read model.
// It is the authoritative source the scope resolver works against.
type StudentDirectory interface {
	List(ctx context.Context, filter StudentFilter) ([]models.Student, error)
	GetByID(ctx context.Context, id uint) (models.Student, error)
}

type studentDirectory struct {
	db *gorm.DB
}

// NewStudentDirectory constructs a directory backed by the database.
func NewStudentDirectory(db *gorm.DB) StudentDirectory {
	return &studentDirectory{db: db}
}

func (r *studentDirectory) List(ctx context.Context, filter StudentFilter) ([]models.Student, error) {
	query := r.db.WithContext(ctx).Model(&models.Student{}).Distinct("students.*")

	if filter.ActiveOnly {
		query = query.Where("students.active = ?", true)
	}
	if len(filter.IDs) > 0 {
		query = query.Where("students.id IN ?", filter.IDs)
	}
	if len(filter.DepartmentIDs) > 0 {
		query = query.Where("students.department_id IN ?", filter.DepartmentIDs)
	}
	if filter.DepartmentID != 0 {
		query = query.Where("students.department_id = ?", filter.DepartmentID)
	}
	if len(filter.SubDepartmentIDs) > 0 {
		query = query.
			Joins("JOIN student_sub_departments ssd ON ssd.student_id = students.id").
			Where("ssd.sub_department_id IN ?", filter.SubDepartmentIDs)
	}
	if len(filter.BatchIDs) > 0 {
		query = query.
			Joins("JOIN student_batches sb ON sb.student_id = students.id").
			Where("sb.batch_id IN ?", filter.BatchIDs)
	}
	if len(filter.Standards) > 0 {
		query = query.Where("students.current_standard IN ?", filter.Standards)
	}

	var students []models.Student
	if err := query.
		Preload("SubDepartments").
		Preload("Batches").
		Order("students.id ASC").
		Find(&students).Error; err != nil {
		return nil, err
	}

	return students, nil
}

func (r *studentDirectory) GetByID(ctx context.Context, id uint) (models.Student, error) {
	var student models.Student
	if err := r.db.WithContext(ctx).
		Preload("SubDepartments").
		Preload("Batches").
		First(&student, id).Error; err != nil {
		return models.Student{}, err
	}

	return student, nil
}
