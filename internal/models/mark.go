package models

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// Mark record entry states.
const (
	MarkStatusDraft     = "draft"
	MarkStatusSubmitted = "submitted"
	MarkStatusVerified  = "verified"
)

// ExamMarkRecord is the canonical aggregate for one student's marks in
// one exam. The (exam_id, student_id) pair is the natural key; writes go
// through upsert semantics, never append. All totals are derived by the
// marks engine on every write and must not be hand-set.
type ExamMarkRecord struct {
	ID                 uint           `gorm:"primaryKey" json:"id"`
	ExamID             uint           `gorm:"not null;uniqueIndex:idx_exam_student" json:"exam_id"`
	StudentID          uint           `gorm:"not null;uniqueIndex:idx_exam_student" json:"student_id"`
	// No column default: gorm drops zero-valued fields carrying a default
	// tag from the INSERT, which would store an absent student as present.
	IsPresent          bool           `gorm:"not null" json:"is_present"`
	AbsentReason       string         `gorm:"size:512" json:"absent_reason,omitempty"`
	SubjectMarks       datatypes.JSON `gorm:"type:json" json:"-"`
	TotalMarksObtained float64        `gorm:"not null;default:0" json:"total_marks_obtained"`
	TotalMaxMarks      float64        `gorm:"not null;default:0" json:"total_max_marks"`
	OverallPercentage  float64        `gorm:"not null;default:0" json:"overall_percentage"`
	OverallGrade       string         `gorm:"size:8" json:"overall_grade"`
	Remarks            string         `gorm:"type:text" json:"remarks,omitempty"`
	TeacherRemarks     string         `gorm:"type:text" json:"teacher_remarks,omitempty"`
	EnteredBy          uint           `json:"entered_by"`
	LastModifiedBy     uint           `json:"last_modified_by"`
	Status             string         `gorm:"size:32;not null;default:draft" json:"status"`
	Version            int            `gorm:"not null;default:1" json:"version"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

// SubjectMarkEntry captures one subject's marks inside a record. MaxMarks
// and PassingMarks are copied from the subject configuration at entry
// time so stored history is insulated from later config edits.
type SubjectMarkEntry struct {
	SubjectID     uint                `json:"subject_id"`
	MaxMarks      float64             `json:"max_marks"`
	PassingMarks  float64             `json:"passing_marks"`
	UseDivisions  bool                `json:"use_divisions"`
	MarksObtained float64             `json:"marks_obtained"`
	Passed        bool                `json:"passed"`
	DivisionMarks []DivisionMarkEntry `json:"division_marks,omitempty"`
}

// DivisionMarkEntry is one division's marks within a divided subject.
type DivisionMarkEntry struct {
	Name          string  `json:"name"`
	MarksObtained float64 `json:"marks_obtained"`
	MaxMarks      float64 `json:"max_marks"`
}

// SetSubjectMarks serializes the per-subject entries into the JSON
// storage column, preserving the exam's subject order.
func (r *ExamMarkRecord) SetSubjectMarks(entries []SubjectMarkEntry) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to encode subject marks: %w", err)
	}
	r.SubjectMarks = datatypes.JSON(data)

	return nil
}

// SubjectMarkList deserializes the stored per-subject entries.
func (r ExamMarkRecord) SubjectMarkList() ([]SubjectMarkEntry, error) {
	if len(r.SubjectMarks) == 0 {
		return nil, nil
	}

	var entries []SubjectMarkEntry
	if err := json.Unmarshal(r.SubjectMarks, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode subject marks: %w", err)
	}

	return entries, nil
}

// Incomplete reports whether the record needs follow-up before it can be
// treated as final: an absence without a reason is stored but flagged.
func (r ExamMarkRecord) Incomplete() bool {
	return !r.IsPresent && r.AbsentReason == ""
}
