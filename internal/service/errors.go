package service

import "errors"

// Typed domain errors. Handlers dispatch on these with errors.Is to map
// them to HTTP statuses; batch callers can surface them per row without
// aborting a whole import. None of them are retried internally.
var (
	// ErrExamNotFound indicates the exam id does not exist.
	ErrExamNotFound = errors.New("exam not found")

	// ErrMarkRecordNotFound indicates no marks were entered yet for the
	// (exam, student) pair.
	ErrMarkRecordNotFound = errors.New("mark record not found")

	// ErrInvalidScope indicates a scope that is structurally broken or
	// references a missing/dissolved parent. Reported, never silently
	// dropped, since it usually means stale exam configuration.
	ErrInvalidScope = errors.New("invalid exam scope")

	// ErrOutOfRangeMarks indicates an obtained mark outside [0, max].
	ErrOutOfRangeMarks = errors.New("marks out of range")

	// ErrDivisionCountMismatch indicates a divided subject was submitted
	// with the wrong number of division entries.
	ErrDivisionCountMismatch = errors.New("division count mismatch")

	// ErrUnknownSubject indicates a submission references a subject the
	// exam is not configured with.
	ErrUnknownSubject = errors.New("unknown subject")

	// ErrStudentNotEligible indicates the student is not in the exam's
	// resolved scope at write time.
	ErrStudentNotEligible = errors.New("student not eligible for exam")

	// ErrExamLocked indicates the exam refuses mark writes (cancelled, or
	// completed and verified).
	ErrExamLocked = errors.New("exam is locked")

	// ErrConcurrentModification indicates an upsert lost against a
	// concurrent writer. Safe to retry after re-reading the record.
	ErrConcurrentModification = errors.New("mark record modified concurrently")

	// ErrInvalidTransition indicates an illegal lifecycle move.
	ErrInvalidTransition = errors.New("invalid exam transition")

	// ErrExamNotEditable indicates scope or subject edits were attempted
	// outside the draft state.
	ErrExamNotEditable = errors.New("exam scope and subjects are only editable in draft")
)
