package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/vidyalay/pariksha-api/internal/dto"
	"github.com/vidyalay/pariksha-api/internal/models"
	"github.com/vidyalay/pariksha-api/internal/observability"
	"github.com/vidyalay/pariksha-api/internal/repository"
)

// MarksEngine validates one student's submitted marks against the exam's
// subject configuration and aggregates them into the canonical record.
// It is the single source of truth for totals, percentage and grade;
// consumers must never recompute those from the raw entries.
type MarksEngine interface {
	Record(ctx context.Context, examID, studentID uint, payload dto.MarkSubmissionRequest, actor Actor) (dto.ExamMarkResponse, error)
	Get(ctx context.Context, examID, studentID uint) (dto.ExamMarkResponse, error)
	ListByExam(ctx context.Context, examID uint) ([]dto.ExamMarkResponse, error)
	Summary(ctx context.Context, examID uint) (dto.ExamResultsSummary, error)
}

type marksEngine struct {
	exams     repository.ExamRepository
	store     repository.MarkStore
	resolver  ScopeResolver
	events    EventPublisher
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
	tracer    trace.Tracer
}

// NewMarksEngine constructs the marks engine.
func NewMarksEngine(exams repository.ExamRepository, store repository.MarkStore, resolver ScopeResolver, events EventPublisher, validate *validator.Validate, logger zerolog.Logger) MarksEngine {
	return &marksEngine{
		exams:     exams,
		store:     store,
		resolver:  resolver,
		events:    events,
		validator: validate,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "marks_engine").Logger(),
		tracer:    otel.Tracer("github.com/vidyalay/pariksha-api/internal/service/marks"),
	}
}

func (s *marksEngine) Record(ctx context.Context, examID, studentID uint, payload dto.MarkSubmissionRequest, actor Actor) (dto.ExamMarkResponse, error) {
	ctx, span := s.tracer.Start(ctx, "marks.record", trace.WithAttributes(
		attribute.Int64("marks.exam_id", int64(examID)),
		attribute.Int64("marks.student_id", int64(studentID)),
		attribute.Int64("marks.actor_id", int64(actor.ID)),
	))
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation_failed")
		return dto.ExamMarkResponse{}, err
	}

	exam, err := s.exams.GetByID(ctx, examID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ExamMarkResponse{}, ErrExamNotFound
		}
		return dto.ExamMarkResponse{}, err
	}

	if exam.IsLocked() {
		span.SetStatus(codes.Error, "exam_locked")
		return dto.ExamMarkResponse{}, ErrExamLocked
	}

	// Eligibility is rechecked at write time, not just when the entry
	// screen was rendered: the scope may have changed in between.
	eligible, err := s.resolver.Resolve(ctx, exam)
	if err != nil {
		return dto.ExamMarkResponse{}, err
	}
	if !containsStudent(eligible, studentID) {
		span.SetStatus(codes.Error, "student_not_eligible")
		return dto.ExamMarkResponse{}, ErrStudentNotEligible
	}

	subjects, err := exam.SubjectList()
	if err != nil {
		return dto.ExamMarkResponse{}, err
	}

	record := models.ExamMarkRecord{
		ExamID:         examID,
		StudentID:      studentID,
		IsPresent:      payload.Present(),
		Remarks:        s.clean(payload.Remarks),
		TeacherRemarks: s.clean(payload.TeacherRemarks),
		Status:         models.MarkStatusDraft,
		EnteredBy:      actor.ID,
		LastModifiedBy: actor.ID,
	}
	if payload.Status != "" {
		record.Status = payload.Status
	}

	if record.IsPresent {
		entries, err := buildSubjectEntries(subjects, payload.SubjectMarks)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "marks_rejected")
			return dto.ExamMarkResponse{}, err
		}
		if err := record.SetSubjectMarks(entries); err != nil {
			return dto.ExamMarkResponse{}, err
		}
		aggregate(&record, entries)
	} else {
		// Absent: submitted subject marks are discarded entirely, only the
		// reason is retained. An empty reason is stored and flagged
		// incomplete downstream, not rejected.
		record.AbsentReason = s.clean(payload.AbsentReason)
		if err := record.SetSubjectMarks(nil); err != nil {
			return dto.ExamMarkResponse{}, err
		}
	}

	if err := s.upsert(ctx, &record, payload.ExpectedVersion); err != nil {
		span.RecordError(err)
		if errors.Is(err, ErrConcurrentModification) {
			observability.MarkWriteConflicts().Inc()
			span.SetStatus(codes.Error, "concurrent_modification")
		}
		return dto.ExamMarkResponse{}, err
	}

	observability.MarksRecorded().WithLabelValues(presenceLabel(record.IsPresent)).Inc()
	s.events.Publish(ctx, EventMarksRecorded, map[string]interface{}{
		"exam_id":    record.ExamID,
		"student_id": record.StudentID,
		"present":    record.IsPresent,
		"percentage": record.OverallPercentage,
		"grade":      record.OverallGrade,
	})

	span.SetAttributes(
		attribute.Float64("marks.percentage", record.OverallPercentage),
		attribute.String("marks.grade", record.OverallGrade),
	)

	s.logger.Info().
		Uint("exam_id", record.ExamID).
		Uint("student_id", record.StudentID).
		Int("version", record.Version).
		Msg("marks recorded")

	return dto.NewExamMarkResponse(record)
}

func (s *marksEngine) Get(ctx context.Context, examID, studentID uint) (dto.ExamMarkResponse, error) {
	record, err := s.store.Get(ctx, examID, studentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ExamMarkResponse{}, ErrMarkRecordNotFound
		}
		return dto.ExamMarkResponse{}, err
	}

	return dto.NewExamMarkResponse(record)
}

func (s *marksEngine) ListByExam(ctx context.Context, examID uint) ([]dto.ExamMarkResponse, error) {
	if _, err := s.exams.GetByID(ctx, examID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrExamNotFound
		}
		return nil, err
	}

	records, err := s.store.ListByExam(ctx, examID)
	if err != nil {
		return nil, err
	}

	return dto.NewExamMarkResponseSlice(records), nil
}

func (s *marksEngine) Summary(ctx context.Context, examID uint) (dto.ExamResultsSummary, error) {
	records, err := s.ListByExam(ctx, examID)
	if err != nil {
		return dto.ExamResultsSummary{}, err
	}

	summary := dto.ExamResultsSummary{ExamID: examID, Records: records}
	for _, record := range records {
		summary.Entered++
		if !record.IsPresent {
			summary.Absent++
			continue
		}
		summary.Present++

		passed := len(record.SubjectMarks) > 0
		for _, subject := range record.SubjectMarks {
			if !subject.Passed {
				passed = false
				break
			}
		}
		if passed {
			summary.Passed++
		}
	}

	return summary, nil
}

// upsert preserves the first write's metadata and surfaces lost races as
// ErrConcurrentModification. The operation is idempotent given the same
// input and expected version, so callers may safely retry.
func (s *marksEngine) upsert(ctx context.Context, record *models.ExamMarkRecord, expectedVersion *int) error {
	existing, err := s.store.Get(ctx, record.ExamID, record.StudentID)
	switch {
	case err == nil:
		if expectedVersion != nil && *expectedVersion != existing.Version {
			return ErrConcurrentModification
		}
		record.ID = existing.ID
		record.EnteredBy = existing.EnteredBy
		record.CreatedAt = existing.CreatedAt
		if err := s.store.Upsert(ctx, record, existing.Version); err != nil {
			if errors.Is(err, repository.ErrVersionConflict) {
				return ErrConcurrentModification
			}
			return err
		}
		return nil

	case errors.Is(err, gorm.ErrRecordNotFound):
		if expectedVersion != nil {
			// The client edited a record that has since disappeared.
			return ErrConcurrentModification
		}
		if err := s.store.Upsert(ctx, record, 0); err != nil {
			if errors.Is(err, repository.ErrVersionConflict) {
				return ErrConcurrentModification
			}
			return err
		}
		return nil

	default:
		return err
	}
}

func (s *marksEngine) clean(value string) string {
	return strings.TrimSpace(s.sanitizer.Sanitize(value))
}

// buildSubjectEntries walks the exam's subjects in canonical order,
// zero-filling omitted ones and validating the submitted marks. For
// divided subjects the obtained total is always derived from the division
// entries; a caller-supplied top-level value is ignored so stale client
// caches cannot smuggle in a conflicting sum.
func buildSubjectEntries(subjects []models.SubjectConfig, inputs []dto.SubjectMarkInput) ([]models.SubjectMarkEntry, error) {
	bySubject := make(map[uint]dto.SubjectMarkInput, len(inputs))
	for _, input := range inputs {
		if _, known := subjectConfigured(subjects, input.SubjectID); !known {
			return nil, fmt.Errorf("%w: subject %d is not configured for this exam", ErrUnknownSubject, input.SubjectID)
		}
		bySubject[input.SubjectID] = input
	}

	entries := make([]models.SubjectMarkEntry, 0, len(subjects))
	for _, subject := range subjects {
		entry := models.SubjectMarkEntry{
			SubjectID:    subject.SubjectID,
			MaxMarks:     subject.MaxMarks,
			PassingMarks: subject.PassingMarks,
			UseDivisions: subject.UseDivisions,
		}

		input, submitted := bySubject[subject.SubjectID]

		if subject.UseDivisions {
			divisions, total, err := buildDivisionEntries(subject, input, submitted)
			if err != nil {
				return nil, err
			}
			entry.DivisionMarks = divisions
			entry.MarksObtained = total
		} else {
			var obtained float64
			if submitted && input.MarksObtained != nil {
				obtained = *input.MarksObtained
			}
			if obtained < 0 || obtained > subject.MaxMarks {
				return nil, fmt.Errorf("%w: subject %d obtained %.2f of max %.2f", ErrOutOfRangeMarks, subject.SubjectID, obtained, subject.MaxMarks)
			}
			entry.MarksObtained = obtained
		}

		entry.Passed = entry.MarksObtained >= subject.PassingMarks
		entries = append(entries, entry)
	}

	return entries, nil
}

func buildDivisionEntries(subject models.SubjectConfig, input dto.SubjectMarkInput, submitted bool) ([]models.DivisionMarkEntry, float64, error) {
	divisions := make([]models.DivisionMarkEntry, 0, len(subject.Divisions))

	if !submitted || len(input.DivisionMarks) == 0 {
		// Omitted subject: zero-fill, a valid intermediate draft state.
		for _, config := range subject.Divisions {
			divisions = append(divisions, models.DivisionMarkEntry{
				Name:     config.Name,
				MaxMarks: config.MaxMarks,
			})
		}
		return divisions, 0, nil
	}

	if len(input.DivisionMarks) != len(subject.Divisions) {
		return nil, 0, fmt.Errorf("%w: subject %d expects %d divisions, got %d", ErrDivisionCountMismatch, subject.SubjectID, len(subject.Divisions), len(input.DivisionMarks))
	}

	var total float64
	for i, config := range subject.Divisions {
		obtained := input.DivisionMarks[i].MarksObtained
		if obtained < 0 || obtained > config.MaxMarks {
			return nil, 0, fmt.Errorf("%w: subject %d division %q obtained %.2f of max %.2f", ErrOutOfRangeMarks, subject.SubjectID, config.Name, obtained, config.MaxMarks)
		}
		divisions = append(divisions, models.DivisionMarkEntry{
			Name:          config.Name,
			MarksObtained: obtained,
			MaxMarks:      config.MaxMarks,
		})
		total += obtained
	}

	return divisions, total, nil
}

// aggregate recomputes the derived totals. Weightage is stored on the
// subject configuration but deliberately not applied here; the observed
// product behavior sums raw marks. With no gradable subjects the grade
// stays empty: "" means nothing was graded, F means a graded zero.
func aggregate(record *models.ExamMarkRecord, entries []models.SubjectMarkEntry) {
	var obtained, max float64
	for _, entry := range entries {
		obtained += entry.MarksObtained
		max += entry.MaxMarks
	}

	record.TotalMarksObtained = obtained
	record.TotalMaxMarks = max
	if max > 0 {
		record.OverallPercentage = obtained / max * 100
		record.OverallGrade = models.GradeForPercentage(record.OverallPercentage)
	} else {
		record.OverallPercentage = 0
		record.OverallGrade = ""
	}
}

func subjectConfigured(subjects []models.SubjectConfig, subjectID uint) (models.SubjectConfig, bool) {
	for _, subject := range subjects {
		if subject.SubjectID == subjectID {
			return subject, true
		}
	}

	return models.SubjectConfig{}, false
}

func containsStudent(eligible []dto.EligibleStudentResponse, studentID uint) bool {
	for _, student := range eligible {
		if student.StudentID == studentID {
			return true
		}
	}

	return false
}

func presenceLabel(present bool) string {
	if present {
		return "present"
	}

	return "absent"
}
