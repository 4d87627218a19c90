package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrBadRequest       = errors.New("bad request")

	ErrInvalidContent   = fmt.Errorf("%w: invalid comment content", ErrBadRequest)
	ErrMaxDepthExceeded = fmt.Errorf("%w: replies may only target top-level comments", ErrBadRequest)
	ErrCategoryCycle    = fmt.Errorf("%w: category parent would create a cycle", ErrBadRequest)
	ErrSlugTaken        = fmt.Errorf("%w: slug already in use", ErrBadRequest)
	ErrInvalidReason    = fmt.Errorf("%w: invalid flag reason", ErrBadRequest)
	ErrNotFlagged       = fmt.Errorf("%w: comment is not flagged", ErrBadRequest)
)

// notFound translates gorm's missing-row error into ErrNotFound.
func notFound(op string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}
