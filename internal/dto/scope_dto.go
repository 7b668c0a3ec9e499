package dto

import "github.com/vidyalay/pariksha-api/internal/models"

// ScopeRequest is the inbound scope declaration. The "all" flag inside a
// departments payload mirrors the "select All clears other selections"
// rule; normalization happens in the model, not the client.
type ScopeRequest struct {
	Kind             string   `json:"kind" validate:"required,oneof=all_departments departments sub_departments batches standards custom_students"`
	All              bool     `json:"all"`
	DepartmentID     uint     `json:"department_id"`
	DepartmentIDs    []uint   `json:"department_ids"`
	SubDepartmentIDs []uint   `json:"sub_department_ids"`
	BatchIDs         []uint   `json:"batch_ids"`
	Standards        []string `json:"standards"`
	StudentIDs       []uint   `json:"student_ids"`
}

// ToModel converts the request into a normalized scope value.
func (r ScopeRequest) ToModel() models.ExamScope {
	return models.ExamScope{
		Kind:             models.ScopeKind(r.Kind),
		All:              r.All,
		DepartmentID:     r.DepartmentID,
		DepartmentIDs:    r.DepartmentIDs,
		SubDepartmentIDs: r.SubDepartmentIDs,
		BatchIDs:         r.BatchIDs,
		Standards:        r.Standards,
		StudentIDs:       r.StudentIDs,
	}.Normalize()
}

// ScopeResponse echoes the stored, normalized scope back to clients.
type ScopeResponse struct {
	Kind             string   `json:"kind"`
	DepartmentID     uint     `json:"department_id,omitempty"`
	DepartmentIDs    []uint   `json:"department_ids,omitempty"`
	SubDepartmentIDs []uint   `json:"sub_department_ids,omitempty"`
	BatchIDs         []uint   `json:"batch_ids,omitempty"`
	Standards        []string `json:"standards,omitempty"`
	StudentIDs       []uint   `json:"student_ids,omitempty"`
}

// NewScopeResponse converts a scope model into a DTO.
func NewScopeResponse(scope models.ExamScope) ScopeResponse {
	return ScopeResponse{
		Kind:             string(scope.Kind),
		DepartmentID:     scope.DepartmentID,
		DepartmentIDs:    scope.DepartmentIDs,
		SubDepartmentIDs: scope.SubDepartmentIDs,
		BatchIDs:         scope.BatchIDs,
		Standards:        scope.Standards,
		StudentIDs:       scope.StudentIDs,
	}
}

// EligibleStudentResponse is one admitted student plus the rule that
// admitted them. A student can match through several paths; Reason is the
// single authoritative one for reporting.
type EligibleStudentResponse struct {
	StudentID uint   `json:"student_id"`
	Name      string `json:"name"`
	Standard  string `json:"standard,omitempty"`
	Reason    string `json:"reason"`
}
