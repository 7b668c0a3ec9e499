package repository

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/vidyalay/pariksha-api/internal/models"
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

func TestMarkStoreUpsertCreatesAtVersionOne(t *testing.T) {
	db := setupTestDB(t)
	store := NewMarkStore(db)
	ctx := context.Background()

	record := models.ExamMarkRecord{ExamID: 1, StudentID: 10, IsPresent: true, Status: models.MarkStatusDraft}
	require.NoError(t, store.Upsert(ctx, &record, 0))
	require.Equal(t, 1, record.Version)

	stored, err := store.Get(ctx, 1, 10)
	require.NoError(t, err)
	require.Equal(t, 1, stored.Version)
}

func TestMarkStoreCreatePersistsAbsence(t *testing.T) {
	db := setupTestDB(t)
	store := NewMarkStore(db)
	ctx := context.Background()

	// First write of an absent student: the false flag must survive the
	// INSERT and not be replaced by a column default.
	record := models.ExamMarkRecord{
		ExamID:       1,
		StudentID:    10,
		IsPresent:    false,
		AbsentReason: "medical leave",
		Status:       models.MarkStatusDraft,
	}
	require.NoError(t, store.Upsert(ctx, &record, 0))

	stored, err := store.Get(ctx, 1, 10)
	require.NoError(t, err)
	require.False(t, stored.IsPresent)
	require.Equal(t, "medical leave", stored.AbsentReason)
}

func TestMarkStoreUpsertRejectsDuplicateCreate(t *testing.T) {
	db := setupTestDB(t)
	store := NewMarkStore(db)
	ctx := context.Background()

	first := models.ExamMarkRecord{ExamID: 1, StudentID: 10, Status: models.MarkStatusDraft}
	require.NoError(t, store.Upsert(ctx, &first, 0))

	// A concurrent first write for the same (exam, student) pair hits the
	// unique index and surfaces as a version conflict.
	duplicate := models.ExamMarkRecord{ExamID: 1, StudentID: 10, Status: models.MarkStatusDraft}
	err := store.Upsert(ctx, &duplicate, 0)
	require.ErrorIs(t, err, ErrVersionConflict)
}

func TestMarkStoreUpsertGuardsOnVersion(t *testing.T) {
	db := setupTestDB(t)
	store := NewMarkStore(db)
	ctx := context.Background()

	record := models.ExamMarkRecord{ExamID: 1, StudentID: 10, Status: models.MarkStatusDraft}
	require.NoError(t, store.Upsert(ctx, &record, 0))

	record.TotalMarksObtained = 42
	require.NoError(t, store.Upsert(ctx, &record, 1))
	require.Equal(t, 2, record.Version)

	// A writer still holding version 1 lost the race.
	stale := models.ExamMarkRecord{ExamID: 1, StudentID: 10, TotalMarksObtained: 7, Status: models.MarkStatusDraft}
	err := store.Upsert(ctx, &stale, 1)
	require.ErrorIs(t, err, ErrVersionConflict)

	stored, err := store.Get(ctx, 1, 10)
	require.NoError(t, err)
	require.Equal(t, 2, stored.Version)
	require.InDelta(t, 42, stored.TotalMarksObtained, 1e-9)
}

func TestMarkStoreListByExamOrdersByStudent(t *testing.T) {
	db := setupTestDB(t)
	store := NewMarkStore(db)
	ctx := context.Background()

	for _, studentID := range []uint{30, 10, 20} {
		record := models.ExamMarkRecord{ExamID: 1, StudentID: studentID, Status: models.MarkStatusDraft}
		require.NoError(t, store.Upsert(ctx, &record, 0))
	}
	other := models.ExamMarkRecord{ExamID: 2, StudentID: 10, Status: models.MarkStatusDraft}
	require.NoError(t, store.Upsert(ctx, &other, 0))

	records, err := store.ListByExam(ctx, 1)
	require.NoError(t, err)
	require.Len(t, records, 3)
	require.Equal(t, uint(10), records[0].StudentID)
	require.Equal(t, uint(20), records[1].StudentID)
	require.Equal(t, uint(30), records[2].StudentID)
}
