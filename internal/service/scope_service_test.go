package service

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/vidyalay/pariksha-api/internal/models"
)

func examWithScope(t *testing.T, id uint, scope models.ExamScope) models.Exam {
	t.Helper()
	exam := models.Exam{ID: id, Status: models.ExamStatusDraft}
	require.NoError(t, exam.SetScope(scope))
	return exam
}

func TestResolveAllDepartments(t *testing.T) {
	db := setupTestDB(t)
	seedDirectory(t, db)
	resolver := newTestResolver(t, db, nil)

	exam := examWithScope(t, 0, models.ExamScope{Kind: models.ScopeAllDepartments})
	eligible, err := resolver.Resolve(context.Background(), exam)
	require.NoError(t, err)

	ids := make([]uint, 0, len(eligible))
	for _, student := range eligible {
		require.Equal(t, "all_departments", student.Reason)
		ids = append(ids, student.StudentID)
	}
	// Divya is inactive and excluded; Esha stays, her own record is active.
	require.Equal(t, []uint{1, 2, 3, 5}, ids)
}

func TestResolveAllFlagOverridesDepartmentSelection(t *testing.T) {
	db := setupTestDB(t)
	seedDirectory(t, db)
	resolver := newTestResolver(t, db, nil)

	// "All departments" ticked together with a concrete selection: the
	// all flag wins and the selection is discarded.
	exam := examWithScope(t, 0, models.ExamScope{
		Kind:          models.ScopeDepartments,
		All:           true,
		DepartmentIDs: []uint{2},
	})
	eligible, err := resolver.Resolve(context.Background(), exam)
	require.NoError(t, err)
	require.Len(t, eligible, 4)
	for _, student := range eligible {
		require.Equal(t, "all_departments", student.Reason)
	}
}

func TestResolveDepartments(t *testing.T) {
	db := setupTestDB(t)
	seedDirectory(t, db)
	resolver := newTestResolver(t, db, nil)

	exam := examWithScope(t, 0, models.ExamScope{Kind: models.ScopeDepartments, DepartmentIDs: []uint{1}})
	eligible, err := resolver.Resolve(context.Background(), exam)
	require.NoError(t, err)
	require.Len(t, eligible, 2)
	require.Equal(t, uint(1), eligible[0].StudentID)
	require.Equal(t, "department:1", eligible[0].Reason)
	require.Equal(t, uint(2), eligible[1].StudentID)
}

func TestResolveStandardsCrossesDepartments(t *testing.T) {
	db := setupTestDB(t)
	seedDirectory(t, db)
	resolver := newTestResolver(t, db, nil)

	exam := examWithScope(t, 0, models.ExamScope{Kind: models.ScopeStandards, Standards: []string{"B.A. 1st Year"}})
	eligible, err := resolver.Resolve(context.Background(), exam)
	require.NoError(t, err)

	// Asha (Arts) and Chitra (Commerce) share the standard.
	require.Len(t, eligible, 2)
	require.Equal(t, uint(1), eligible[0].StudentID)
	require.Equal(t, uint(3), eligible[1].StudentID)
	require.Equal(t, "standard:B.A. 1st Year", eligible[0].Reason)
}

func TestResolveSubDepartments(t *testing.T) {
	db := setupTestDB(t)
	seedDirectory(t, db)
	resolver := newTestResolver(t, db, nil)

	exam := examWithScope(t, 0, models.ExamScope{
		Kind:             models.ScopeSubDepartments,
		DepartmentID:     1,
		SubDepartmentIDs: []uint{1},
	})
	eligible, err := resolver.Resolve(context.Background(), exam)
	require.NoError(t, err)
	require.Len(t, eligible, 1)
	require.Equal(t, uint(1), eligible[0].StudentID)
	require.Equal(t, "sub_department:1", eligible[0].Reason)
}

func TestResolveBatches(t *testing.T) {
	db := setupTestDB(t)
	seedDirectory(t, db)
	resolver := newTestResolver(t, db, nil)

	exam := examWithScope(t, 0, models.ExamScope{
		Kind:         models.ScopeBatches,
		DepartmentID: 2,
		BatchIDs:     []uint{2},
	})
	eligible, err := resolver.Resolve(context.Background(), exam)
	require.NoError(t, err)
	require.Len(t, eligible, 1)
	require.Equal(t, uint(3), eligible[0].StudentID)
	require.Equal(t, "batch:2", eligible[0].Reason)
}

func TestResolveRejectsDissolvedParentDepartment(t *testing.T) {
	db := setupTestDB(t)
	seedDirectory(t, db)
	resolver := newTestResolver(t, db, nil)

	exam := examWithScope(t, 0, models.ExamScope{
		Kind:             models.ScopeSubDepartments,
		DepartmentID:     3,
		SubDepartmentIDs: []uint{1},
	})
	_, err := resolver.Resolve(context.Background(), exam)
	require.ErrorIs(t, err, ErrInvalidScope)

	exam = examWithScope(t, 0, models.ExamScope{
		Kind:         models.ScopeBatches,
		DepartmentID: 999,
		BatchIDs:     []uint{1},
	})
	_, err = resolver.Resolve(context.Background(), exam)
	require.ErrorIs(t, err, ErrInvalidScope)
}

func TestResolveRejectsForeignSubDepartmentsAndBatches(t *testing.T) {
	db := setupTestDB(t)
	seedDirectory(t, db)
	resolver := newTestResolver(t, db, nil)

	// Sub-department 1 belongs to Arts, not Commerce.
	exam := examWithScope(t, 0, models.ExamScope{
		Kind:             models.ScopeSubDepartments,
		DepartmentID:     2,
		SubDepartmentIDs: []uint{1},
	})
	_, err := resolver.Resolve(context.Background(), exam)
	require.ErrorIs(t, err, ErrInvalidScope)

	// Batch 77 was deleted after the exam was drafted.
	exam = examWithScope(t, 0, models.ExamScope{
		Kind:         models.ScopeBatches,
		DepartmentID: 1,
		BatchIDs:     []uint{1, 77},
	})
	_, err = resolver.Resolve(context.Background(), exam)
	require.ErrorIs(t, err, ErrInvalidScope)
}

func TestResolveCustomStudentsDropsUnknownIDs(t *testing.T) {
	db := setupTestDB(t)
	seedDirectory(t, db)
	resolver := newTestResolver(t, db, nil)

	exam := examWithScope(t, 0, models.ExamScope{
		Kind:       models.ScopeCustomStudents,
		StudentIDs: []uint{1, 4, 999},
	})
	eligible, err := resolver.Resolve(context.Background(), exam)
	require.NoError(t, err)

	// 999 is silently dropped; Divya (inactive) stays, the custom list
	// is an explicit selection rather than a directory filter.
	require.Len(t, eligible, 2)
	require.Equal(t, uint(1), eligible[0].StudentID)
	require.Equal(t, uint(4), eligible[1].StudentID)
	require.Equal(t, "custom", eligible[0].Reason)
}

func TestResolveRejectsStructurallyInvalidScope(t *testing.T) {
	db := setupTestDB(t)
	seedDirectory(t, db)
	resolver := newTestResolver(t, db, nil)

	exam := examWithScope(t, 0, models.ExamScope{Kind: models.ScopeDepartments})
	_, err := resolver.Resolve(context.Background(), exam)
	require.ErrorIs(t, err, ErrInvalidScope)

	exam = examWithScope(t, 0, models.ExamScope{Kind: "galaxy"})
	_, err = resolver.Resolve(context.Background(), exam)
	require.ErrorIs(t, err, ErrInvalidScope)
}

func TestResolveIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	seedDirectory(t, db)
	resolver := newTestResolver(t, db, nil)

	exam := examWithScope(t, 0, models.ExamScope{Kind: models.ScopeDepartments, DepartmentIDs: []uint{1, 2}})

	first, err := resolver.Resolve(context.Background(), exam)
	require.NoError(t, err)
	second, err := resolver.Resolve(context.Background(), exam)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestResolveCachesAndInvalidates(t *testing.T) {
	db := setupTestDB(t)
	seedDirectory(t, db)

	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { cache.Close() })

	resolver := newTestResolver(t, db, cache)

	exam := examWithScope(t, 42, models.ExamScope{Kind: models.ScopeDepartments, DepartmentIDs: []uint{1}})

	eligible, err := resolver.Resolve(context.Background(), exam)
	require.NoError(t, err)
	require.Len(t, eligible, 2)
	require.True(t, mr.Exists("exam:42:eligible"))

	// Directory changes are invisible until the cache entry is dropped.
	require.NoError(t, db.Model(&models.Student{}).Where("id = ?", 2).Update("active", false).Error)

	cached, err := resolver.Resolve(context.Background(), exam)
	require.NoError(t, err)
	require.Len(t, cached, 2)

	resolver.Invalidate(context.Background(), exam.ID)
	require.False(t, mr.Exists("exam:42:eligible"))

	fresh, err := resolver.Resolve(context.Background(), exam)
	require.NoError(t, err)
	require.Len(t, fresh, 1)
	require.Equal(t, uint(1), fresh[0].StudentID)
}
