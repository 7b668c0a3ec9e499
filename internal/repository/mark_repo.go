package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/vidyalay/pariksha-api/internal/models"
)

// ErrVersionConflict signals that an upsert lost the race against a
// concurrent writer: the stored version no longer matches the expected
// one. The write is safe to retry after re-reading the record.
var ErrVersionConflict = errors.New("mark record version conflict")

// MarkStore persists exam mark records keyed by (exam_id, student_id).
// Upsert is the only write path and is guarded by optimistic versioning
// so concurrent edits surface instead of silently overwriting.
type MarkStore interface {
	Get(ctx context.Context, examID, studentID uint) (models.ExamMarkRecord, error)
	Upsert(ctx context.Context, record *models.ExamMarkRecord, expectedVersion int) error
	ListByExam(ctx context.Context, examID uint) ([]models.ExamMarkRecord, error)
}

type markStore struct {
	db *gorm.DB
}

// NewMarkStore constructs a mark store backed by the database.
func NewMarkStore(db *gorm.DB) MarkStore {
	return &markStore{db: db}
}

func (r *markStore) Get(ctx context.Context, examID, studentID uint) (models.ExamMarkRecord, error) {
	var record models.ExamMarkRecord
	if err := r.db.WithContext(ctx).
		Where("exam_id = ? AND student_id = ?", examID, studentID).
		First(&record).Error; err != nil {
		return models.ExamMarkRecord{}, err
	}

	return record, nil
}

// Upsert inserts the record when expectedVersion is zero, otherwise
// updates in place guarded by the version column. The unique index on
// (exam_id, student_id) turns a concurrent first-write race into
// ErrVersionConflict rather than a duplicate row.
func (r *markStore) Upsert(ctx context.Context, record *models.ExamMarkRecord, expectedVersion int) error {
	if expectedVersion == 0 {
		record.Version = 1
		if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrVersionConflict
			}
			return err
		}
		return nil
	}

	updates := map[string]interface{}{
		"is_present":           record.IsPresent,
		"absent_reason":        record.AbsentReason,
		"subject_marks":        record.SubjectMarks,
		"total_marks_obtained": record.TotalMarksObtained,
		"total_max_marks":      record.TotalMaxMarks,
		"overall_percentage":   record.OverallPercentage,
		"overall_grade":        record.OverallGrade,
		"remarks":              record.Remarks,
		"teacher_remarks":      record.TeacherRemarks,
		"last_modified_by":     record.LastModifiedBy,
		"status":               record.Status,
		"version":              expectedVersion + 1,
	}

	result := r.db.WithContext(ctx).Model(&models.ExamMarkRecord{}).
		Where("exam_id = ? AND student_id = ? AND version = ?", record.ExamID, record.StudentID, expectedVersion).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrVersionConflict
	}

	record.Version = expectedVersion + 1

	return nil
}

func (r *markStore) ListByExam(ctx context.Context, examID uint) ([]models.ExamMarkRecord, error) {
	var records []models.ExamMarkRecord
	if err := r.db.WithContext(ctx).
		Where("exam_id = ?", examID).
		Order("student_id ASC").
		Find(&records).Error; err != nil {
		return nil, err
	}

	return records, nil
}
