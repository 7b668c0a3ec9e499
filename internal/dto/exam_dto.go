package dto

import (
	"time"

	"github.com/vidyalay/pariksha-api/internal/models"
)

// SubjectConfigRequest describes one subject inside an exam payload.
type SubjectConfigRequest struct {
	SubjectID    uint                    `json:"subject_id" validate:"required"`
	Name         string                  `json:"name" validate:"required"`
	MaxMarks     float64                 `json:"max_marks" validate:"required,gt=0"`
	PassingMarks float64                 `json:"passing_marks" validate:"gte=0"`
	Weightage    *float64                `json:"weightage" validate:"omitempty,gt=0"`
	UseDivisions bool                    `json:"use_divisions"`
	Divisions    []DivisionConfigRequest `json:"divisions" validate:"omitempty,dive"`
}

// DivisionConfigRequest describes one division of a divided subject.
type DivisionConfigRequest struct {
	Name     string  `json:"name" validate:"required"`
	MaxMarks float64 `json:"max_marks" validate:"gte=0"`
}

// ToModel converts the request into a subject configuration, applying the
// weightage default and the canonical division layout when divisions are
// enabled but not spelled out.
func (r SubjectConfigRequest) ToModel() models.SubjectConfig {
	config := models.SubjectConfig{
		SubjectID:    r.SubjectID,
		Name:         r.Name,
		MaxMarks:     r.MaxMarks,
		PassingMarks: r.PassingMarks,
		Weightage:    1,
		UseDivisions: r.UseDivisions,
	}
	if r.Weightage != nil {
		config.Weightage = *r.Weightage
	}
	if r.UseDivisions {
		if len(r.Divisions) == 0 {
			config.Divisions = models.DefaultDivisions(r.MaxMarks)
		} else {
			config.Divisions = make([]models.DivisionConfig, 0, len(r.Divisions))
			for _, division := range r.Divisions {
				config.Divisions = append(config.Divisions, models.DivisionConfig{
					Name:     division.Name,
					MaxMarks: division.MaxMarks,
				})
			}
		}
	}

	return config
}

// ExamCreateRequest describes the payload for creating a new exam.
type ExamCreateRequest struct {
	Name     string                 `json:"name" validate:"required,min=3"`
	ExamType string                 `json:"exam_type" validate:"required,oneof=unit midterm final assignment project practical"`
	Scope    ScopeRequest           `json:"scope" validate:"required"`
	Subjects []SubjectConfigRequest `json:"subjects" validate:"omitempty,dive"`
}

// ExamUpdateRequest describes the payload for updating an exam. Scope and
// subject edits are only accepted while the exam is in draft.
type ExamUpdateRequest struct {
	Name     *string                 `json:"name" validate:"omitempty,min=3"`
	ExamType *string                 `json:"exam_type" validate:"omitempty,oneof=unit midterm final assignment project practical"`
	Scope    *ScopeRequest           `json:"scope"`
	Subjects *[]SubjectConfigRequest `json:"subjects" validate:"omitempty,dive"`
}

// ExamTransitionRequest names the lifecycle state to move to.
type ExamTransitionRequest struct {
	Target string `json:"target" validate:"required,oneof=scheduled ongoing completed cancelled"`
}

// SubjectConfigResponse is the serialized subject configuration.
type SubjectConfigResponse struct {
	SubjectID    uint                     `json:"subject_id"`
	Name         string                   `json:"name"`
	MaxMarks     float64                  `json:"max_marks"`
	PassingMarks float64                  `json:"passing_marks"`
	Weightage    float64                  `json:"weightage"`
	UseDivisions bool                     `json:"use_divisions"`
	Divisions    []DivisionConfigResponse `json:"divisions,omitempty"`
}

// DivisionConfigResponse is the serialized division configuration.
type DivisionConfigResponse struct {
	Name     string  `json:"name"`
	MaxMarks float64 `json:"max_marks"`
}

// ExamResponse is the serialized representation returned to API clients.
type ExamResponse struct {
	ID        uint                    `json:"id"`
	Name      string                  `json:"name"`
	ExamType  string                  `json:"exam_type"`
	Status    string                  `json:"status"`
	Verified  bool                    `json:"verified"`
	Locked    bool                    `json:"locked"`
	Scope     ScopeResponse           `json:"scope"`
	Subjects  []SubjectConfigResponse `json:"subjects"`
	CreatedBy uint                    `json:"created_by"`
	CreatedAt time.Time               `json:"created_at"`
	UpdatedAt time.Time               `json:"updated_at"`
}

// NewExamResponse converts a model into a DTO.
func NewExamResponse(exam models.Exam) (ExamResponse, error) {
	scope, err := exam.ScopeValue()
	if err != nil {
		return ExamResponse{}, err
	}
	subjects, err := exam.SubjectList()
	if err != nil {
		return ExamResponse{}, err
	}

	subjectResponses := make([]SubjectConfigResponse, 0, len(subjects))
	for _, subject := range subjects {
		item := SubjectConfigResponse{
			SubjectID:    subject.SubjectID,
			Name:         subject.Name,
			MaxMarks:     subject.MaxMarks,
			PassingMarks: subject.PassingMarks,
			Weightage:    subject.Weightage,
			UseDivisions: subject.UseDivisions,
		}
		for _, division := range subject.Divisions {
			item.Divisions = append(item.Divisions, DivisionConfigResponse{
				Name:     division.Name,
				MaxMarks: division.MaxMarks,
			})
		}
		subjectResponses = append(subjectResponses, item)
	}

	return ExamResponse{
		ID:        exam.ID,
		Name:      exam.Name,
		ExamType:  exam.ExamType,
		Status:    exam.Status,
		Verified:  exam.Verified,
		Locked:    exam.IsLocked(),
		Scope:     NewScopeResponse(scope),
		Subjects:  subjectResponses,
		CreatedBy: exam.CreatedBy,
		CreatedAt: exam.CreatedAt,
		UpdatedAt: exam.UpdatedAt,
	}, nil
}

// NewExamResponseSlice converts a slice of models into DTOs, skipping
// records whose stored payloads fail to decode.
func NewExamResponseSlice(exams []models.Exam) []ExamResponse {
	responses := make([]ExamResponse, 0, len(exams))
	for _, exam := range exams {
		response, err := NewExamResponse(exam)
		if err != nil {
			continue
		}
		responses = append(responses, response)
	}

	return responses
}
