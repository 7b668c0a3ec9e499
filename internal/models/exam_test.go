package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from    string
		to      string
		allowed bool
	}{
		{ExamStatusDraft, ExamStatusScheduled, true},
		{ExamStatusDraft, ExamStatusOngoing, false},
		{ExamStatusDraft, ExamStatusCompleted, false},
		{ExamStatusScheduled, ExamStatusOngoing, true},
		{ExamStatusScheduled, ExamStatusCompleted, true},
		{ExamStatusOngoing, ExamStatusCompleted, true},
		{ExamStatusOngoing, ExamStatusScheduled, false},
		{ExamStatusCompleted, ExamStatusOngoing, false},
		{ExamStatusDraft, ExamStatusCancelled, true},
		{ExamStatusScheduled, ExamStatusCancelled, true},
		{ExamStatusOngoing, ExamStatusCancelled, true},
		{ExamStatusCompleted, ExamStatusCancelled, false},
		{ExamStatusCancelled, ExamStatusCancelled, false},
		{ExamStatusCancelled, ExamStatusScheduled, false},
	}

	for _, tc := range cases {
		exam := Exam{Status: tc.from}
		require.Equal(t, tc.allowed, exam.CanTransition(tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestIsLocked(t *testing.T) {
	require.True(t, Exam{Status: ExamStatusCancelled}.IsLocked())
	require.True(t, Exam{Status: ExamStatusCompleted, Verified: true}.IsLocked())
	require.False(t, Exam{Status: ExamStatusCompleted}.IsLocked(), "completed but unverified stays writable")
	require.False(t, Exam{Status: ExamStatusOngoing, Verified: true}.IsLocked())
	require.False(t, Exam{Status: ExamStatusDraft}.IsLocked())
}

func TestSubjectConfigValidateDivisions(t *testing.T) {
	valid := SubjectConfig{
		SubjectID:    1,
		Name:         "English",
		MaxMarks:     100,
		PassingMarks: 35,
		Weightage:    1,
		UseDivisions: true,
		Divisions:    DefaultDivisions(100),
	}
	require.NoError(t, valid.Validate())

	short := valid
	short.Divisions = valid.Divisions[:9]
	require.Error(t, short.Validate())

	mismatch := valid
	mismatch.Divisions = DefaultDivisions(90)
	require.Error(t, mismatch.Validate(), "division maxima must sum to subject max marks")
}

func TestSubjectConfigValidateBounds(t *testing.T) {
	base := SubjectConfig{SubjectID: 2, Name: "Maths", MaxMarks: 50, PassingMarks: 17, Weightage: 1}
	require.NoError(t, base.Validate())

	noID := base
	noID.SubjectID = 0
	require.Error(t, noID.Validate())

	zeroMax := base
	zeroMax.MaxMarks = 0
	require.Error(t, zeroMax.Validate())

	passingAboveMax := base
	passingAboveMax.PassingMarks = 51
	require.Error(t, passingAboveMax.Validate())

	zeroWeight := base
	zeroWeight.Weightage = 0
	require.Error(t, zeroWeight.Validate())
}

func TestDefaultDivisions(t *testing.T) {
	divisions := DefaultDivisions(100)
	require.Len(t, divisions, DivisionsPerSubject)

	var sum float64
	for _, division := range divisions {
		sum += division.MaxMarks
	}
	require.InDelta(t, 100, sum, 1e-9)
}

func TestMarkRecordIncomplete(t *testing.T) {
	require.True(t, ExamMarkRecord{IsPresent: false}.Incomplete())
	require.False(t, ExamMarkRecord{IsPresent: false, AbsentReason: "medical leave"}.Incomplete())
	require.False(t, ExamMarkRecord{IsPresent: true}.Incomplete())
}
