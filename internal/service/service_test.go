package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/vidyalay/pariksha-api/internal/dto"
	"github.com/vidyalay/pariksha-api/internal/models"
	"github.com/vidyalay/pariksha-api/internal/repository"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Department{},
		&models.SubDepartment{},
		&models.Batch{},
		&models.Student{},
		&models.Exam{},
		&models.ExamMarkRecord{},
	))
	return db
}

// seedDirectory loads a small academic hierarchy:
//
//	Arts (1, active):      Asha (sub-dep 1, batch 1), Bharat (sub-dep 2)
//	Commerce (2, active):  Chitra (batch 2), Divya (inactive)
//	Science (3, dissolved): Esha
//
// Asha and Chitra share the standard "B.A. 1st Year" across departments.
func seedDirectory(t *testing.T, db *gorm.DB) {
	t.Helper()

	departments := []models.Department{
		{ID: 1, Name: "Arts", Active: true},
		{ID: 2, Name: "Commerce", Active: true},
		{ID: 3, Name: "Science", Active: false},
	}
	require.NoError(t, db.Create(&departments).Error)

	subDepartments := []models.SubDepartment{
		{ID: 1, DepartmentID: 1, Name: "Arts Morning", Active: true},
		{ID: 2, DepartmentID: 1, Name: "Arts Evening", Active: true},
	}
	require.NoError(t, db.Create(&subDepartments).Error)

	batches := []models.Batch{
		{ID: 1, DepartmentID: 1, Name: "2024 Intake", Active: true},
		{ID: 2, DepartmentID: 2, Name: "2025 Intake", Active: true},
	}
	require.NoError(t, db.Create(&batches).Error)

	students := []models.Student{
		{ID: 1, Name: "Asha Patil", Email: "asha@example.com", DepartmentID: 1, CurrentStandard: "B.A. 1st Year", Active: true,
			SubDepartments: []models.SubDepartment{subDepartments[0]}, Batches: []models.Batch{batches[0]}},
		{ID: 2, Name: "Bharat Kulkarni", Email: "bharat@example.com", DepartmentID: 1, CurrentStandard: "B.A. 2nd Year", Active: true,
			SubDepartments: []models.SubDepartment{subDepartments[1]}},
		{ID: 3, Name: "Chitra Deshmukh", Email: "chitra@example.com", DepartmentID: 2, CurrentStandard: "B.A. 1st Year", Active: true,
			Batches: []models.Batch{batches[1]}},
		{ID: 4, Name: "Divya Joshi", Email: "divya@example.com", DepartmentID: 2, CurrentStandard: "F.Y. B.Com", Active: false},
		{ID: 5, Name: "Esha Naik", Email: "esha@example.com", DepartmentID: 3, CurrentStandard: "B.Sc. 1st Year", Active: true},
	}
	require.NoError(t, db.Create(&students).Error)
}

func newTestResolver(t *testing.T, db *gorm.DB, cache *redis.Client) ScopeResolver {
	t.Helper()
	return NewScopeResolver(
		repository.NewStudentDirectory(db),
		repository.NewAcademicRepository(db),
		cache,
		time.Minute,
		zerolog.Nop(),
	)
}

type testEnv struct {
	db       *gorm.DB
	resolver ScopeResolver
	exams    ExamService
	marks    MarksEngine
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	db := setupTestDB(t)
	seedDirectory(t, db)

	validate := validator.New(validator.WithRequiredStructEnabled())
	events := NewExamEventPublisher(nil, nil, "exams", zerolog.Nop())
	resolver := newTestResolver(t, db, nil)
	examRepo := repository.NewExamRepository(db)
	markStore := repository.NewMarkStore(db)

	return testEnv{
		db:       db,
		resolver: resolver,
		exams:    NewExamService(examRepo, resolver, events, validate, zerolog.Nop()),
		marks:    NewMarksEngine(examRepo, markStore, resolver, events, validate, zerolog.Nop()),
	}
}

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }
func boolPtr(v bool) *bool        { return &v }

// createExam builds an exam over the given scope with an English subject
// marked by divisions and a directly marked Maths subject.
func createExam(t *testing.T, env testEnv, scope dto.ScopeRequest) dto.ExamResponse {
	t.Helper()
	exam, err := env.exams.Create(context.Background(), dto.ExamCreateRequest{
		Name:     "First Unit Test",
		ExamType: models.ExamTypeUnit,
		Scope:    scope,
		Subjects: []dto.SubjectConfigRequest{
			{SubjectID: 101, Name: "English", MaxMarks: 100, PassingMarks: 35, UseDivisions: true},
			{SubjectID: 102, Name: "Maths", MaxMarks: 50, PassingMarks: 17},
		},
	}, Actor{ID: 900, Role: "admin"})
	require.NoError(t, err)
	return exam
}

func evenDivisions(count int, each float64) []dto.DivisionMarkInput {
	divisions := make([]dto.DivisionMarkInput, 0, count)
	for i := 0; i < count; i++ {
		divisions = append(divisions, dto.DivisionMarkInput{
			Name:          fmt.Sprintf("Division %d", i+1),
			MarksObtained: each,
		})
	}
	return divisions
}
