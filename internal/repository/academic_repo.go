package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/vidyalay/pariksha-api/internal/models"
)

// AcademicRepository reads the department hierarchy the resolver
// validates scope parents against.
type AcademicRepository interface {
	GetDepartment(ctx context.Context, id uint) (models.Department, error)
	ListSubDepartments(ctx context.Context, departmentID uint, ids []uint) ([]models.SubDepartment, error)
	ListBatches(ctx context.Context, departmentID uint, ids []uint) ([]models.Batch, error)
}

type academicRepository struct {
	db *gorm.DB
}

// NewAcademicRepository constructs an academic hierarchy repository.
func NewAcademicRepository(db *gorm.DB) AcademicRepository {
	return &academicRepository{db: db}
}

func (r *academicRepository) GetDepartment(ctx context.Context, id uint) (models.Department, error) {
	var department models.Department
	if err := r.db.WithContext(ctx).First(&department, id).Error; err != nil {
		return models.Department{}, err
	}

	return department, nil
}

func (r *academicRepository) ListSubDepartments(ctx context.Context, departmentID uint, ids []uint) ([]models.SubDepartment, error) {
	query := r.db.WithContext(ctx).Where("department_id = ?", departmentID)
	if len(ids) > 0 {
		query = query.Where("id IN ?", ids)
	}

	var subDepartments []models.SubDepartment
	if err := query.Order("id ASC").Find(&subDepartments).Error; err != nil {
		return nil, err
	}

	return subDepartments, nil
}

func (r *academicRepository) ListBatches(ctx context.Context, departmentID uint, ids []uint) ([]models.Batch, error) {
	query := r.db.WithContext(ctx).Where("department_id = ?", departmentID)
	if len(ids) > 0 {
		query = query.Where("id IN ?", ids)
	}

	var batches []models.Batch
	if err := query.Order("id ASC").Find(&batches).Error; err != nil {
		return nil, err
	}

	return batches, nil
}
