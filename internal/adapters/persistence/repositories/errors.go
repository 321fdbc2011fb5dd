package repositories

import (
	"errors"

	"casedesk/internal/core/domain"

	"gorm.io/gorm"
)

// translate maps driver errors onto domain errors
func translate(err error, notFound error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return notFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return domain.ErrDuplicateEntry
	default:
		return err
	}
}
