package models

import (
	"encoding/json"
	"fmt"
	"sort"
)

// ScopeKind identifies which scope variant an exam targets.
type ScopeKind string

const (
	ScopeAllDepartments ScopeKind = "all_departments"
	ScopeDepartments    ScopeKind = "departments"
	ScopeSubDepartments ScopeKind = "sub_departments"
	ScopeBatches        ScopeKind = "batches"
	ScopeStandards      ScopeKind = "standards"
	ScopeCustomStudents ScopeKind = "custom_students"
)

// ExamScope is the closed set of targeting rules for an exam. Exactly one
// variant is active, selected by Kind; the id fields are only meaningful
// for the variant they belong to.
type ExamScope struct {
	Kind ScopeKind `json:"kind"`
	// All marks the "every department" selection inside a departments
	// payload. Normalize promotes it to ScopeAllDepartments so stale
	// concrete ids can never linger alongside it.
	All              bool     `json:"all,omitempty"`
	DepartmentID     uint     `json:"department_id,omitempty"`
	DepartmentIDs    []uint   `json:"department_ids,omitempty"`
	SubDepartmentIDs []uint   `json:"sub_department_ids,omitempty"`
	BatchIDs         []uint   `json:"batch_ids,omitempty"`
	Standards        []string `json:"standards,omitempty"`
	StudentIDs       []uint   `json:"student_ids,omitempty"`
}

// Normalize canonicalizes a scope: the all-departments selection wins over
// any concrete department ids supplied next to it, id lists are
// de-duplicated and sorted, and fields foreign to the active variant are
// cleared.
func (s ExamScope) Normalize() ExamScope {
	if s.Kind == ScopeAllDepartments || (s.Kind == ScopeDepartments && s.All) {
		return ExamScope{Kind: ScopeAllDepartments}
	}

	normalized := ExamScope{Kind: s.Kind}
	switch s.Kind {
	case ScopeDepartments:
		normalized.DepartmentIDs = dedupeIDs(s.DepartmentIDs)
	case ScopeSubDepartments:
		normalized.DepartmentID = s.DepartmentID
		normalized.SubDepartmentIDs = dedupeIDs(s.SubDepartmentIDs)
	case ScopeBatches:
		normalized.DepartmentID = s.DepartmentID
		normalized.BatchIDs = dedupeIDs(s.BatchIDs)
	case ScopeStandards:
		normalized.Standards = dedupeStrings(s.Standards)
	case ScopeCustomStudents:
		normalized.StudentIDs = dedupeIDs(s.StudentIDs)
	}

	return normalized
}

// Validate checks the structural invariants of a scope. Referential checks
// (does the parent department still exist) belong to the resolver.
func (s ExamScope) Validate() error {
	switch s.Kind {
	case ScopeAllDepartments:
		return nil
	case ScopeDepartments:
		if len(s.DepartmentIDs) == 0 {
			return fmt.Errorf("departments scope requires at least one department id")
		}
	case ScopeSubDepartments:
		if s.DepartmentID == 0 {
			return fmt.Errorf("sub-departments scope requires a parent department id")
		}
		if len(s.SubDepartmentIDs) == 0 {
			return fmt.Errorf("sub-departments scope requires at least one sub-department id")
		}
	case ScopeBatches:
		if s.DepartmentID == 0 {
			return fmt.Errorf("batches scope requires a parent department id")
		}
		if len(s.BatchIDs) == 0 {
			return fmt.Errorf("batches scope requires at least one batch id")
		}
	case ScopeStandards:
		if len(s.Standards) == 0 {
			return fmt.Errorf("standards scope requires at least one standard")
		}
	case ScopeCustomStudents:
		if len(s.StudentIDs) == 0 {
			return fmt.Errorf("custom students scope requires at least one student id")
		}
	default:
		return fmt.Errorf("unknown scope kind %q", s.Kind)
	}

	return nil
}

// DecodeScope parses a stored scope JSON payload.
func DecodeScope(raw []byte) (ExamScope, error) {
	var scope ExamScope
	if len(raw) == 0 {
		return scope, fmt.Errorf("scope payload is empty")
	}
	if err := json.Unmarshal(raw, &scope); err != nil {
		return scope, fmt.Errorf("failed to decode scope: %w", err)
	}

	return scope, nil
}

func dedupeIDs(ids []uint) []uint {
	if len(ids) == 0 {
		return nil
	}

	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	if len(out) == 0 {
		return nil
	}

	return out
}

func dedupeStrings(values []string) []string {
	if len(values) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, value := range values {
		if value == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	sort.Strings(out)
	if len(out) == 0 {
		return nil
	}

	return out
}
