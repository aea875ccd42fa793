package service

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when a task, list, label or subtask does not exist.
	ErrNotFound = errors.New("not found")
	// ErrEmptyName is returned when a record would be stored without a name or title.
	ErrEmptyName = errors.New("name is required")
	// ErrProtectedList is returned when the default list is about to be removed or redefined.
	ErrProtectedList = errors.New("the default list cannot be changed")
	// ErrUnknownList is returned when a task would reference a list that does not exist.
	ErrUnknownList = errors.New("list does not exist")
)

// lookupErr maps gorm's record-not-found onto ErrNotFound.
func lookupErr(err error, what, id string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s %s: %w", what, id, ErrNotFound)
	}
	return fmt.Errorf("find %s %s: %w", what, id, err)
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
