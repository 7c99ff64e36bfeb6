package duty

import (
	"context"
	"errors"
	"fmt"

	"github.com/Soar-Robotics/HeroOfTheDay/internal/store"
)

// Validation errors. Returned to the caller as-is and never retried.
var (
	// ErrUnknownHero is returned when the named hero does not exist.
	ErrUnknownHero = errors.New("unknown hero")

	// ErrUnknownMember is returned when a member is not part of the hero.
	ErrUnknownMember = errors.New("unknown member")

	// ErrOverlap is returned when a shift intersects another shift of the
	// same hero, or when its slot holds a different assignment.
	ErrOverlap = errors.New("shift overlaps an existing shift")

	// ErrPastWrite is returned when a schedule change would rewrite time
	// that has already been credited.
	ErrPastWrite = errors.New("shift starts before the reconciled watermark")

	// ErrHeroExists is returned when creating a hero whose name is taken.
	ErrHeroExists = errors.New("hero already exists")

	// ErrUnknownShift is returned when no shift starts at the given instant.
	ErrUnknownShift = errors.New("unknown shift")

	// ErrInvalidInput is returned for malformed names or intervals.
	ErrInvalidInput = errors.New("invalid input")
)

// Operational errors.
var (
	// ErrReconcileConflict is returned when a ledger write kept losing
	// against concurrent writers of the same hero.
	ErrReconcileConflict = errors.New("reconciliation conflict")

	// ErrStorageUnavailable wraps storage failures that are not domain
	// errors. The whole operation should be retried later.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrDirectorySyncFailed is reported, never returned, when the duty
	// holder could not be pushed to the directory.
	ErrDirectorySyncFailed = errors.New("directory sync failed")
)

var domainErrors = []error{
	ErrUnknownHero,
	ErrUnknownMember,
	ErrOverlap,
	ErrPastWrite,
	ErrHeroExists,
	ErrUnknownShift,
	ErrInvalidInput,
	ErrReconcileConflict,
	ErrStorageUnavailable,
	store.ErrRevisionConflict,
	context.Canceled,
	context.DeadlineExceeded,
}

// storageErr classifies err: domain errors pass through, anything else is
// wrapped as ErrStorageUnavailable.
func storageErr(err error) error {
	if err == nil {
		return nil
	}
	for _, known := range domainErrors {
		if errors.Is(err, known) {
			return err
		}
	}
	return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
}

func heroErr(name string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrUnknownHero, name)
	}
	return storageErr(err)
}
