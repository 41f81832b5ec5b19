package models

import (
	"errors"

	"gorm.io/gorm"
)

// ErrNotFound is returned when a referenced term, item, session or user does not exist.
var ErrNotFound = errors.New("record not found")

// NotFound maps gorm.ErrRecordNotFound to ErrNotFound and passes other errors through.
func NotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
