package models

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// Exam lifecycle states.
const (
	ExamStatusDraft     = "draft"
	ExamStatusScheduled = "scheduled"
	ExamStatusOngoing   = "ongoing"
	ExamStatusCompleted = "completed"
	ExamStatusCancelled = "cancelled"
)

// Exam types.
const (
	ExamTypeUnit       = "unit"
	ExamTypeMidterm    = "midterm"
	ExamTypeFinal      = "final"
	ExamTypeAssignment = "assignment"
	ExamTypeProject    = "project"
	ExamTypePractical  = "practical"
)

// DivisionsPerSubject is the fixed division count when a subject is
// configured with division-wise mark entry.
const DivisionsPerSubject = 10

// Exam holds the scope and subject configuration marks are entered
// against. Scope and Subjects are stored as JSON columns; use the typed
// accessors rather than touching the raw payloads.
type Exam struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Name      string         `gorm:"size:255;not null" json:"name"`
	ExamType  string         `gorm:"size:32;not null" json:"exam_type"`
	Status    string         `gorm:"size:32;not null;default:draft" json:"status"`
	Verified  bool           `gorm:"not null;default:false" json:"verified"`
	Scope     datatypes.JSON `gorm:"type:json" json:"-"`
	Subjects  datatypes.JSON `gorm:"type:json" json:"-"`
	CreatedBy uint           `json:"created_by"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// SubjectConfig defines how one subject is marked within an exam.
// Weightage is stored for reporting but is not applied when totals are
// summed; that behavior is pending a product decision.
type SubjectConfig struct {
	SubjectID    uint             `json:"subject_id"`
	Name         string           `json:"name"`
	MaxMarks     float64          `json:"max_marks"`
	PassingMarks float64          `json:"passing_marks"`
	Weightage    float64          `json:"weightage"`
	UseDivisions bool             `json:"use_divisions"`
	Divisions    []DivisionConfig `json:"divisions,omitempty"`
}

// DivisionConfig is one fixed sub-component of a divided subject.
type DivisionConfig struct {
	Name     string  `json:"name"`
	MaxMarks float64 `json:"max_marks"`
}

// DefaultDivisions returns the canonical division layout: ten divisions
// splitting maxMarks evenly.
func DefaultDivisions(maxMarks float64) []DivisionConfig {
	divisions := make([]DivisionConfig, 0, DivisionsPerSubject)
	per := maxMarks / DivisionsPerSubject
	for i := 1; i <= DivisionsPerSubject; i++ {
		divisions = append(divisions, DivisionConfig{
			Name:     fmt.Sprintf("Division %d", i),
			MaxMarks: per,
		})
	}

	return divisions
}

// Validate checks the per-subject configuration invariants.
func (c SubjectConfig) Validate() error {
	if c.SubjectID == 0 {
		return fmt.Errorf("subject id is required")
	}
	if c.MaxMarks <= 0 {
		return fmt.Errorf("subject %d: max marks must be positive", c.SubjectID)
	}
	if c.PassingMarks < 0 || c.PassingMarks > c.MaxMarks {
		return fmt.Errorf("subject %d: passing marks must be between 0 and max marks", c.SubjectID)
	}
	if c.Weightage <= 0 {
		return fmt.Errorf("subject %d: weightage must be positive", c.SubjectID)
	}
	if !c.UseDivisions {
		return nil
	}

	if len(c.Divisions) != DivisionsPerSubject {
		return fmt.Errorf("subject %d: expected %d divisions, got %d", c.SubjectID, DivisionsPerSubject, len(c.Divisions))
	}

	var sum float64
	for _, division := range c.Divisions {
		if division.MaxMarks < 0 {
			return fmt.Errorf("subject %d: division %q max marks must not be negative", c.SubjectID, division.Name)
		}
		sum += division.MaxMarks
	}
	if !floatsEqual(sum, c.MaxMarks) {
		return fmt.Errorf("subject %d: division max marks sum %.2f does not equal subject max marks %.2f", c.SubjectID, sum, c.MaxMarks)
	}

	return nil
}

// SetScope serializes the scope into the JSON storage column.
func (e *Exam) SetScope(scope ExamScope) error {
	data, err := json.Marshal(scope)
	if err != nil {
		return fmt.Errorf("failed to encode scope: %w", err)
	}
	e.Scope = datatypes.JSON(data)

	return nil
}

// ScopeValue deserializes the stored scope.
func (e Exam) ScopeValue() (ExamScope, error) {
	return DecodeScope(e.Scope)
}

// SetSubjects serializes the subject configuration list. Insertion order
// is the canonical report order and is preserved as stored.
func (e *Exam) SetSubjects(subjects []SubjectConfig) error {
	data, err := json.Marshal(subjects)
	if err != nil {
		return fmt.Errorf("failed to encode subjects: %w", err)
	}
	e.Subjects = datatypes.JSON(data)

	return nil
}

// SubjectList deserializes the stored subject configuration.
func (e Exam) SubjectList() ([]SubjectConfig, error) {
	if len(e.Subjects) == 0 {
		return nil, nil
	}

	var subjects []SubjectConfig
	if err := json.Unmarshal(e.Subjects, &subjects); err != nil {
		return nil, fmt.Errorf("failed to decode subjects: %w", err)
	}

	return subjects, nil
}

// SubjectByID looks up a subject configuration within the exam.
func (e Exam) SubjectByID(subjectID uint) (SubjectConfig, bool) {
	subjects, err := e.SubjectList()
	if err != nil {
		return SubjectConfig{}, false
	}
	for _, subject := range subjects {
		if subject.SubjectID == subjectID {
			return subject, true
		}
	}

	return SubjectConfig{}, false
}

// IsTerminal reports whether the exam can no longer change state.
func (e Exam) IsTerminal() bool {
	return e.Status == ExamStatusCancelled || e.Status == ExamStatusCompleted
}

// IsLocked reports whether mark writes must be refused. Cancelled exams
// are locked outright; completed exams lock once the external authority
// marks them verified.
func (e Exam) IsLocked() bool {
	if e.Status == ExamStatusCancelled {
		return true
	}

	return e.Status == ExamStatusCompleted && e.Verified
}

// CanTransition reports whether the lifecycle allows moving to the target
// state. Gate conditions that need collaborator data (non-empty scope for
// draft→scheduled) are enforced by the service layer on top of this.
func (e Exam) CanTransition(target string) bool {
	if target == ExamStatusCancelled {
		return !e.IsTerminal()
	}

	switch e.Status {
	case ExamStatusDraft:
		return target == ExamStatusScheduled
	case ExamStatusScheduled:
		return target == ExamStatusOngoing || target == ExamStatusCompleted
	case ExamStatusOngoing:
		return target == ExamStatusCompleted
	default:
		return false
	}
}

// ValidExamType reports whether the given exam type is one of the
// supported values.
func ValidExamType(examType string) bool {
	switch examType {
	case ExamTypeUnit, ExamTypeMidterm, ExamTypeFinal, ExamTypeAssignment, ExamTypeProject, ExamTypePractical:
		return true
	default:
		return false
	}
}

const floatTolerance = 1e-6

func floatsEqual(a, b float64) bool {
	diff := a - b
	if diff < 0 {
		diff = -diff
	}

	return diff < floatTolerance
}
