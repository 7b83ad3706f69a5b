package domain

import "errors"

var (
	ErrInvalidID             = errors.New("invalid id")
	ErrInvalidName           = errors.New("invalid name")
	ErrInvalidTitle          = errors.New("invalid title")
	ErrInvalidStreamID       = errors.New("invalid stream id")
	ErrInvalidPosition       = errors.New("invalid position")
	ErrInvalidReadiness      = errors.New("invalid readiness")
	ErrInvalidStreamStatus   = errors.New("invalid stream status")
	ErrInvalidTrackHealth    = errors.New("invalid track health")
	ErrInvalidReason         = errors.New("recommit reason is required")
	ErrChecklistItemNotFound = errors.New("checklist item not found")
	ErrSelfDependency        = errors.New("deliverable cannot depend on itself")
	ErrDependencyCycle       = errors.New("dependency cycle detected")
	ErrAlreadyPromoted       = errors.New("note already promoted")
	ErrInvalidBody           = errors.New("invalid comment body")
	ErrInvalidTargetType     = errors.New("invalid comment target type")
	ErrInvalidTargetID       = errors.New("invalid comment target id")
)
