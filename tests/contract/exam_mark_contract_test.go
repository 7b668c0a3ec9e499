package contract_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/stretchr/testify/require"

	"github.com/vidyalay/pariksha-api/internal/dto"
	"github.com/vidyalay/pariksha-api/internal/handler"
	"github.com/vidyalay/pariksha-api/internal/service"
)

type stubMarksEngine struct {
	record dto.ExamMarkResponse
}

func (s stubMarksEngine) Record(context.Context, uint, uint, dto.MarkSubmissionRequest, service.Actor) (dto.ExamMarkResponse, error) {
	return s.record, nil
}

func (s stubMarksEngine) Get(context.Context, uint, uint) (dto.ExamMarkResponse, error) {
	return s.record, nil
}

func (s stubMarksEngine) ListByExam(context.Context, uint) ([]dto.ExamMarkResponse, error) {
	return []dto.ExamMarkResponse{s.record}, nil
}

func (s stubMarksEngine) Summary(context.Context, uint) (dto.ExamResultsSummary, error) {
	return dto.ExamResultsSummary{ExamID: s.record.ExamID, Entered: 1, Present: 1, Passed: 1,
		Records: []dto.ExamMarkResponse{s.record}}, nil
}

func TestExamMarkRecordContract(t *testing.T) {
	schemaPath, err := filepath.Abs(filepath.Join("..", "contracts", "exam_mark_record.schema.json"))
	require.NoError(t, err)

	compiler := jsonschema.NewCompiler()
	schema, err := compiler.Compile("file://" + schemaPath)
	require.NoError(t, err)

	now := time.Now().UTC()
	record := dto.ExamMarkResponse{
		ID:        7,
		ExamID:    3,
		StudentID: 12,
		IsPresent: true,
		SubjectMarks: []dto.SubjectMarkResponse{
			{
				SubjectID:     101,
				MaxMarks:      100,
				PassingMarks:  35,
				UseDivisions:  true,
				MarksObtained: 82,
				Passed:        true,
				DivisionMarks: []dto.DivisionMarkResponse{
					{Name: "Division 1", MarksObtained: 8.2, MaxMarks: 10},
				},
			},
			{SubjectID: 102, MaxMarks: 50, PassingMarks: 17, MarksObtained: 41, Passed: true},
		},
		TotalMarksObtained: 123,
		TotalMaxMarks:      150,
		OverallPercentage:  82,
		OverallGrade:       "A",
		EnteredBy:          900,
		LastModifiedBy:     900,
		Status:             "submitted",
		Version:            2,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	markHandler := handler.NewMarkHandler(stubMarksEngine{record: record}, zerolog.Nop())

	app := fiber.New()
	markHandler.Register(app.Group("/exams/:id"))

	req := httptest.NewRequest(http.MethodGet, "/exams/3/marks/12", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var payload interface{}
	require.NoError(t, json.Unmarshal(body, &payload))
	require.NoError(t, schema.Validate(payload))
}
