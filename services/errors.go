package services

import (
	"errors"
	"fmt"

	"github.com/yeremiapane/trashunter/repository"
)

var (
	ErrMarkerNotFound = repository.ErrMarkerNotFound
	ErrAlreadyCleaned = repository.ErrAlreadyCleaned
	ErrAIRejected     = errors.New("image rejected by AI verification")

	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = repository.ErrEmailTaken
)

// RejectionError is returned when the classifier verdict contradicts the
// claimed state of the area. It matches ErrAIRejected with errors.Is.
type RejectionError struct {
	Message string
}

func (e *RejectionError) Error() string { return e.Message }

func (e *RejectionError) Is(target error) bool { return target == ErrAIRejected }

// TooFarError reports a failed proximity check.
type TooFarError struct {
	Distance float64
	Radius   float64
}

func (e *TooFarError) Error() string {
	return fmt.Sprintf("You are too far away (%dm). You must be within %dm to clean this spot.",
		int(e.Distance), int(e.Radius))
}
