package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/vidyalay/pariksha-api/internal/dto"
	"github.com/vidyalay/pariksha-api/internal/models"
	"github.com/vidyalay/pariksha-api/internal/repository"
)

// Actor identifies the authenticated caller of a mutation.
type Actor struct {
	ID   uint
	Role string
}

// ExamService owns exam configuration and the lifecycle state machine.
type ExamService interface {
	Create(ctx context.Context, payload dto.ExamCreateRequest, actor Actor) (dto.ExamResponse, error)
	Update(ctx context.Context, id uint, payload dto.ExamUpdateRequest) (dto.ExamResponse, error)
	Get(ctx context.Context, id uint) (dto.ExamResponse, error)
	List(ctx context.Context, filter repository.ExamFilter) ([]dto.ExamResponse, error)
	Transition(ctx context.Context, id uint, target string) (dto.ExamResponse, error)
	Verify(ctx context.Context, id uint) (dto.ExamResponse, error)
	EligibleStudents(ctx context.Context, id uint) ([]dto.EligibleStudentResponse, error)
}

type examService struct {
	exams     repository.ExamRepository
	resolver  ScopeResolver
	events    EventPublisher
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewExamService constructs an ExamService instance.
func NewExamService(exams repository.ExamRepository, resolver ScopeResolver, events EventPublisher, validate *validator.Validate, logger zerolog.Logger) ExamService {
	return &examService{
		exams:     exams,
		resolver:  resolver,
		events:    events,
		validator: validate,
		logger:    logger.With().Str("component", "exam_service").Logger(),
	}
}

func (s *examService) Create(ctx context.Context, payload dto.ExamCreateRequest, actor Actor) (dto.ExamResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ExamResponse{}, err
	}

	scope := payload.Scope.ToModel()
	if err := scope.Validate(); err != nil {
		return dto.ExamResponse{}, fmt.Errorf("%w: %v", ErrInvalidScope, err)
	}

	subjects, err := buildSubjects(payload.Subjects)
	if err != nil {
		return dto.ExamResponse{}, err
	}

	exam := models.Exam{
		Name:      payload.Name,
		ExamType:  payload.ExamType,
		Status:    models.ExamStatusDraft,
		CreatedBy: actor.ID,
	}
	if err := exam.SetScope(scope); err != nil {
		return dto.ExamResponse{}, err
	}
	if err := exam.SetSubjects(subjects); err != nil {
		return dto.ExamResponse{}, err
	}

	if err := s.exams.Create(ctx, &exam); err != nil {
		return dto.ExamResponse{}, err
	}

	s.logger.Info().Uint("exam_id", exam.ID).Str("exam_type", exam.ExamType).Msg("exam created")

	return dto.NewExamResponse(exam)
}

func (s *examService) Update(ctx context.Context, id uint, payload dto.ExamUpdateRequest) (dto.ExamResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ExamResponse{}, err
	}

	exam, err := s.getExam(ctx, id)
	if err != nil {
		return dto.ExamResponse{}, err
	}

	if (payload.Scope != nil || payload.Subjects != nil) && exam.Status != models.ExamStatusDraft {
		return dto.ExamResponse{}, ErrExamNotEditable
	}
	if exam.IsTerminal() && (payload.Name != nil || payload.ExamType != nil) {
		return dto.ExamResponse{}, ErrExamNotEditable
	}

	if payload.Name != nil {
		exam.Name = *payload.Name
	}
	if payload.ExamType != nil {
		exam.ExamType = *payload.ExamType
	}

	scopeChanged := false
	if payload.Scope != nil {
		scope := payload.Scope.ToModel()
		if err := scope.Validate(); err != nil {
			return dto.ExamResponse{}, fmt.Errorf("%w: %v", ErrInvalidScope, err)
		}
		if err := exam.SetScope(scope); err != nil {
			return dto.ExamResponse{}, err
		}
		scopeChanged = true
	}

	if payload.Subjects != nil {
		subjects, err := buildSubjects(*payload.Subjects)
		if err != nil {
			return dto.ExamResponse{}, err
		}
		if err := exam.SetSubjects(subjects); err != nil {
			return dto.ExamResponse{}, err
		}
	}

	if err := s.exams.Update(ctx, &exam); err != nil {
		return dto.ExamResponse{}, err
	}

	if scopeChanged {
		s.resolver.Invalidate(ctx, exam.ID)
	}

	s.logger.Info().Uint("exam_id", exam.ID).Msg("exam updated")

	return dto.NewExamResponse(exam)
}

func (s *examService) Get(ctx context.Context, id uint) (dto.ExamResponse, error) {
	exam, err := s.getExam(ctx, id)
	if err != nil {
		return dto.ExamResponse{}, err
	}

	return dto.NewExamResponse(exam)
}

func (s *examService) List(ctx context.Context, filter repository.ExamFilter) ([]dto.ExamResponse, error) {
	exams, err := s.exams.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	return dto.NewExamResponseSlice(exams), nil
}

// Transition validates and applies a lifecycle move. draft→scheduled is
// gated on a non-empty subject list and a non-empty resolved scope;
// completing an exam with incomplete marks is allowed, that is a
// reporting concern.
func (s *examService) Transition(ctx context.Context, id uint, target string) (dto.ExamResponse, error) {
	exam, err := s.getExam(ctx, id)
	if err != nil {
		return dto.ExamResponse{}, err
	}

	if !exam.CanTransition(target) {
		return dto.ExamResponse{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, exam.Status, target)
	}

	if exam.Status == models.ExamStatusDraft && target == models.ExamStatusScheduled {
		subjects, err := exam.SubjectList()
		if err != nil {
			return dto.ExamResponse{}, err
		}
		if len(subjects) == 0 {
			return dto.ExamResponse{}, fmt.Errorf("%w: exam has no subjects configured", ErrInvalidTransition)
		}

		eligible, err := s.resolver.Resolve(ctx, exam)
		if err != nil {
			return dto.ExamResponse{}, err
		}
		if len(eligible) == 0 {
			return dto.ExamResponse{}, fmt.Errorf("%w: exam scope resolves to no students", ErrInvalidTransition)
		}
	}

	previous := exam.Status
	exam.Status = target
	if err := s.exams.Update(ctx, &exam); err != nil {
		return dto.ExamResponse{}, err
	}

	s.events.Publish(ctx, EventExamStatusChanged, map[string]interface{}{
		"exam_id": exam.ID,
		"from":    previous,
		"to":      target,
	})

	s.logger.Info().Uint("exam_id", exam.ID).Str("from", previous).Str("to", target).Msg("exam status changed")

	return dto.NewExamResponse(exam)
}

// Verify records the external authority's verification of a completed
// exam, which locks its mark records against further writes.
func (s *examService) Verify(ctx context.Context, id uint) (dto.ExamResponse, error) {
	exam, err := s.getExam(ctx, id)
	if err != nil {
		return dto.ExamResponse{}, err
	}

	if exam.Status != models.ExamStatusCompleted {
		return dto.ExamResponse{}, fmt.Errorf("%w: only completed exams can be verified", ErrInvalidTransition)
	}

	if !exam.Verified {
		exam.Verified = true
		if err := s.exams.Update(ctx, &exam); err != nil {
			return dto.ExamResponse{}, err
		}
		s.logger.Info().Uint("exam_id", exam.ID).Msg("exam verified and locked")
	}

	return dto.NewExamResponse(exam)
}

func (s *examService) EligibleStudents(ctx context.Context, id uint) ([]dto.EligibleStudentResponse, error) {
	exam, err := s.getExam(ctx, id)
	if err != nil {
		return nil, err
	}

	return s.resolver.Resolve(ctx, exam)
}

func (s *examService) getExam(ctx context.Context, id uint) (models.Exam, error) {
	exam, err := s.exams.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Exam{}, ErrExamNotFound
		}
		return models.Exam{}, err
	}

	return exam, nil
}

// buildSubjects converts and validates a subject configuration payload.
// Subject identity within an exam is unique by subject id; insertion
// order is preserved as the canonical report order.
func buildSubjects(requests []dto.SubjectConfigRequest) ([]models.SubjectConfig, error) {
	subjects := make([]models.SubjectConfig, 0, len(requests))
	seen := make(map[uint]struct{}, len(requests))
	for _, request := range requests {
		config := request.ToModel()
		if _, ok := seen[config.SubjectID]; ok {
			return nil, fmt.Errorf("duplicate subject id %d in exam configuration", config.SubjectID)
		}
		seen[config.SubjectID] = struct{}{}
		if err := config.Validate(); err != nil {
			return nil, err
		}
		subjects = append(subjects, config)
	}

	return subjects, nil
}
