package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/vidyalay/pariksha-api/internal/dto"
	"github.com/vidyalay/pariksha-api/internal/models"
	"github.com/vidyalay/pariksha-api/internal/observability"
	"github.com/vidyalay/pariksha-api/internal/repository"
)

// ScopeResolver turns an exam's scope declaration into the ordered,
// de-duplicated set of eligible students. Resolution is pure and
// idempotent given unchanged directory state; resolved sets for persisted
// exams are cached in redis and invalidated on exam mutation.
type ScopeResolver interface {
	Resolve(ctx context.Context, exam models.Exam) ([]dto.EligibleStudentResponse, error)
	Invalidate(ctx context.Context, examID uint)
}

type scopeResolver struct {
	directory repository.StudentDirectory
	academic  repository.AcademicRepository
	cache     *redis.Client
	cacheTTL  time.Duration
	logger    zerolog.Logger
}

// NewScopeResolver constructs a scope resolver. The cache client may be
// nil, in which case every call resolves against the directory.
func NewScopeResolver(directory repository.StudentDirectory, academic repository.AcademicRepository, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) ScopeResolver {
	return &scopeResolver{
		directory: directory,
		academic:  academic,
		cache:     cache,
		cacheTTL:  ttl,
		logger:    logger.With().Str("component", "scope_resolver").Logger(),
	}
}

func scopeCacheKey(examID uint) string {
	return fmt.Sprintf("exam:%d:eligible", examID)
}

func (s *scopeResolver) Resolve(ctx context.Context, exam models.Exam) ([]dto.EligibleStudentResponse, error) {
	scope, err := exam.ScopeValue()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScope, err)
	}

	if s.cache != nil && exam.ID != 0 {
		if cached, err := s.cache.Get(ctx, scopeCacheKey(exam.ID)).Result(); err == nil {
			var eligible []dto.EligibleStudentResponse
			if unmarshalErr := json.Unmarshal([]byte(cached), &eligible); unmarshalErr == nil {
				s.logger.Debug().Uint("exam_id", exam.ID).Msg("eligible set cache hit")
				return eligible, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn().Err(err).Msg("failed to read eligible set cache")
		}
	}

	eligible, err := s.resolve(ctx, scope)
	if err != nil {
		return nil, err
	}

	observability.ScopeResolutions().WithLabelValues(string(scope.Kind)).Inc()

	if s.cache != nil && exam.ID != 0 {
		if payload, err := json.Marshal(eligible); err == nil {
			if err := s.cache.Set(ctx, scopeCacheKey(exam.ID), payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store eligible set cache")
			}
		}
	}

	return eligible, nil
}

// Invalidate drops the cached eligible set for an exam after its scope or
// lifecycle changed.
func (s *scopeResolver) Invalidate(ctx context.Context, examID uint) {
	if s.cache == nil || examID == 0 {
		return
	}
	if err := s.cache.Del(ctx, scopeCacheKey(examID)).Err(); err != nil {
		s.logger.Warn().Err(err).Uint("exam_id", examID).Msg("failed to invalidate eligible set cache")
	}
}

// resolve performs the pure variant dispatch. It never writes and holds
// no state, so concurrent callers are safe.
func (s *scopeResolver) resolve(ctx context.Context, scope models.ExamScope) ([]dto.EligibleStudentResponse, error) {
	scope = scope.Normalize()
	if err := scope.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScope, err)
	}

	switch scope.Kind {
	case models.ScopeAllDepartments:
		students, err := s.directory.List(ctx, repository.StudentFilter{ActiveOnly: true})
		if err != nil {
			return nil, err
		}
		return admitAll(students, func(models.Student) string { return "all_departments" }), nil

	case models.ScopeDepartments:
		students, err := s.directory.List(ctx, repository.StudentFilter{DepartmentIDs: scope.DepartmentIDs, ActiveOnly: true})
		if err != nil {
			return nil, err
		}
		return admitAll(students, func(student models.Student) string {
			return fmt.Sprintf("department:%d", student.DepartmentID)
		}), nil

	case models.ScopeSubDepartments:
		if err := s.checkParentDepartment(ctx, scope.DepartmentID); err != nil {
			return nil, err
		}
		known, err := s.academic.ListSubDepartments(ctx, scope.DepartmentID, scope.SubDepartmentIDs)
		if err != nil {
			return nil, err
		}
		if len(known) != len(scope.SubDepartmentIDs) {
			return nil, fmt.Errorf("%w: scope references sub-departments not in department %d", ErrInvalidScope, scope.DepartmentID)
		}
		students, err := s.directory.List(ctx, repository.StudentFilter{
			DepartmentID:     scope.DepartmentID,
			SubDepartmentIDs: scope.SubDepartmentIDs,
			ActiveOnly:       true,
		})
		if err != nil {
			return nil, err
		}
		wanted := idSet(scope.SubDepartmentIDs)
		return admitAll(students, func(student models.Student) string {
			for _, subDepartment := range student.SubDepartments {
				if _, ok := wanted[subDepartment.ID]; ok {
					return fmt.Sprintf("sub_department:%d", subDepartment.ID)
				}
			}
			return "sub_department"
		}), nil

	case models.ScopeBatches:
		if err := s.checkParentDepartment(ctx, scope.DepartmentID); err != nil {
			return nil, err
		}
		known, err := s.academic.ListBatches(ctx, scope.DepartmentID, scope.BatchIDs)
		if err != nil {
			return nil, err
		}
		if len(known) != len(scope.BatchIDs) {
			return nil, fmt.Errorf("%w: scope references batches not in department %d", ErrInvalidScope, scope.DepartmentID)
		}
		students, err := s.directory.List(ctx, repository.StudentFilter{
			DepartmentID: scope.DepartmentID,
			BatchIDs:     scope.BatchIDs,
			ActiveOnly:   true,
		})
		if err != nil {
			return nil, err
		}
		wanted := idSet(scope.BatchIDs)
		return admitAll(students, func(student models.Student) string {
			for _, batch := range student.Batches {
				if _, ok := wanted[batch.ID]; ok {
					return fmt.Sprintf("batch:%d", batch.ID)
				}
			}
			return "batch"
		}), nil

	case models.ScopeStandards:
		// Standards are department-independent, so no department filter.
		students, err := s.directory.List(ctx, repository.StudentFilter{Standards: scope.Standards, ActiveOnly: true})
		if err != nil {
			return nil, err
		}
		return admitAll(students, func(student models.Student) string {
			return fmt.Sprintf("standard:%s", student.CurrentStandard)
		}), nil

	case models.ScopeCustomStudents:
		// Ids no longer present in the directory are dropped, not errored:
		// the student may have left after being added to a draft exam.
		students, err := s.directory.List(ctx, repository.StudentFilter{IDs: scope.StudentIDs})
		if err != nil {
			return nil, err
		}
		return admitAll(students, func(models.Student) string { return "custom" }), nil

	default:
		return nil, fmt.Errorf("%w: unknown scope kind %q", ErrInvalidScope, scope.Kind)
	}
}

func (s *scopeResolver) checkParentDepartment(ctx context.Context, departmentID uint) error {
	department, err := s.academic.GetDepartment(ctx, departmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: department %d does not exist", ErrInvalidScope, departmentID)
		}
		return err
	}
	if !department.Active {
		return fmt.Errorf("%w: department %d is dissolved", ErrInvalidScope, departmentID)
	}

	return nil
}

// admitAll maps directory results to admissions. The directory returns
// students ordered and de-duplicated by id; the guard map keeps the
// output set free of duplicates even if a filter matches twice.
func admitAll(students []models.Student, reason func(models.Student) string) []dto.EligibleStudentResponse {
	seen := make(map[uint]struct{}, len(students))
	eligible := make([]dto.EligibleStudentResponse, 0, len(students))
	for _, student := range students {
		if _, ok := seen[student.ID]; ok {
			continue
		}
		seen[student.ID] = struct{}{}
		eligible = append(eligible, dto.EligibleStudentResponse{
			StudentID: student.ID,
			Name:      student.Name,
			Standard:  student.CurrentStandard,
			Reason:    reason(student),
		})
	}

	return eligible
}

func idSet(ids []uint) map[uint]struct{} {
	set := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}

	return set
}
