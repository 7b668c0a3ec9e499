package dto

import (
	"time"

	"github.com/vidyalay/pariksha-api/internal/models"
)

// DivisionMarkInput is one division's obtained marks as submitted.
type DivisionMarkInput struct {
	Name          string  `json:"name"`
	MarksObtained float64 `json:"marks_obtained" validate:"gte=0"`
}

// SubjectMarkInput is one subject's marks as submitted. MarksObtained is
// ignored for divided subjects; the engine derives it from the division
// entries regardless of what the caller supplies.
type SubjectMarkInput struct {
	SubjectID     uint                `json:"subject_id" validate:"required"`
	MarksObtained *float64            `json:"marks_obtained" validate:"omitempty,gte=0"`
	DivisionMarks []DivisionMarkInput `json:"division_marks" validate:"omitempty,dive"`
}

// MarkSubmissionRequest is the inbound payload for recording one
// student's marks. ExpectedVersion carries the version the client last
// read; when set, a stale write fails instead of overwriting.
type MarkSubmissionRequest struct {
	IsPresent       *bool              `json:"is_present"`
	AbsentReason    string             `json:"absent_reason"`
	SubjectMarks    []SubjectMarkInput `json:"subject_marks" validate:"omitempty,dive"`
	Remarks         string             `json:"remarks"`
	TeacherRemarks  string             `json:"teacher_remarks"`
	Status          string             `json:"status" validate:"omitempty,oneof=draft submitted"`
	ExpectedVersion *int               `json:"expected_version" validate:"omitempty,gte=1"`
}

// Present resolves the presence flag, defaulting to present when omitted.
func (r MarkSubmissionRequest) Present() bool {
	if r.IsPresent == nil {
		return true
	}

	return *r.IsPresent
}

// DivisionMarkResponse is one division entry in the stored record.
type DivisionMarkResponse struct {
	Name          string  `json:"name"`
	MarksObtained float64 `json:"marks_obtained"`
	MaxMarks      float64 `json:"max_marks"`
}

// SubjectMarkResponse is one subject entry in the stored record.
type SubjectMarkResponse struct {
	SubjectID     uint                   `json:"subject_id"`
	MaxMarks      float64                `json:"max_marks"`
	PassingMarks  float64                `json:"passing_marks"`
	UseDivisions  bool                   `json:"use_divisions"`
	MarksObtained float64                `json:"marks_obtained"`
	Passed        bool                   `json:"passed"`
	DivisionMarks []DivisionMarkResponse `json:"division_marks,omitempty"`
}

// ExamMarkResponse is the canonical aggregate returned to clients and
// reporting consumers. Totals are engine-derived; consumers must not
// recompute them from the subject entries.
type ExamMarkResponse struct {
	ID                 uint                  `json:"id"`
	ExamID             uint                  `json:"exam_id"`
	StudentID          uint                  `json:"student_id"`
	IsPresent          bool                  `json:"is_present"`
	AbsentReason       string                `json:"absent_reason,omitempty"`
	SubjectMarks       []SubjectMarkResponse `json:"subject_marks"`
	TotalMarksObtained float64               `json:"total_marks_obtained"`
	TotalMaxMarks      float64               `json:"total_max_marks"`
	OverallPercentage  float64               `json:"overall_percentage"`
	OverallGrade       string                `json:"overall_grade"`
	Remarks            string                `json:"remarks,omitempty"`
	TeacherRemarks     string                `json:"teacher_remarks,omitempty"`
	EnteredBy          uint                  `json:"entered_by"`
	LastModifiedBy     uint                  `json:"last_modified_by"`
	Status             string                `json:"status"`
	Incomplete         bool                  `json:"incomplete"`
	Version            int                   `json:"version"`
	CreatedAt          time.Time             `json:"created_at"`
	UpdatedAt          time.Time             `json:"updated_at"`
}

// NewExamMarkResponse converts a model into a DTO.
func NewExamMarkResponse(record models.ExamMarkRecord) (ExamMarkResponse, error) {
	entries, err := record.SubjectMarkList()
	if err != nil {
		return ExamMarkResponse{}, err
	}

	subjectMarks := make([]SubjectMarkResponse, 0, len(entries))
	for _, entry := range entries {
		item := SubjectMarkResponse{
			SubjectID:     entry.SubjectID,
			MaxMarks:      entry.MaxMarks,
			PassingMarks:  entry.PassingMarks,
			UseDivisions:  entry.UseDivisions,
			MarksObtained: entry.MarksObtained,
			Passed:        entry.Passed,
		}
		for _, division := range entry.DivisionMarks {
			item.DivisionMarks = append(item.DivisionMarks, DivisionMarkResponse{
				Name:          division.Name,
				MarksObtained: division.MarksObtained,
				MaxMarks:      division.MaxMarks,
			})
		}
		subjectMarks = append(subjectMarks, item)
	}

	return ExamMarkResponse{
		ID:                 record.ID,
		ExamID:             record.ExamID,
		StudentID:          record.StudentID,
		IsPresent:          record.IsPresent,
		AbsentReason:       record.AbsentReason,
		SubjectMarks:       subjectMarks,
		TotalMarksObtained: record.TotalMarksObtained,
		TotalMaxMarks:      record.TotalMaxMarks,
		OverallPercentage:  record.OverallPercentage,
		OverallGrade:       record.OverallGrade,
		Remarks:            record.Remarks,
		TeacherRemarks:     record.TeacherRemarks,
		EnteredBy:          record.EnteredBy,
		LastModifiedBy:     record.LastModifiedBy,
		Status:             record.Status,
		Incomplete:         record.Incomplete(),
		Version:            record.Version,
		CreatedAt:          record.CreatedAt,
		UpdatedAt:          record.UpdatedAt,
	}, nil
}

// NewExamMarkResponseSlice converts a slice of models into DTOs.
func NewExamMarkResponseSlice(records []models.ExamMarkRecord) []ExamMarkResponse {
	responses := make([]ExamMarkResponse, 0, len(records))
	for _, record := range records {
		response, err := NewExamMarkResponse(record)
		if err != nil {
			continue
		}
		responses = append(responses, response)
	}

	return responses
}

// ExamResultsSummary aggregates per-exam entry counts for reporting.
type ExamResultsSummary struct {
	ExamID  uint               `json:"exam_id"`
	Entered int                `json:"entered"`
	Present int                `json:"present"`
	Absent  int                `json:"absent"`
	Passed  int                `json:"passed"`
	Records []ExamMarkResponse `json:"records"`
}
