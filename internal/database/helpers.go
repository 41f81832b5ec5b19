package database

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FirstOrCreate loads the first row matching query into dest, or creates dest
// when none exists. The insert skips unique conflicts instead of failing, so
// a lost race never aborts the caller's transaction; the winning row is read
// back and callers never see duplicates.
func FirstOrCreate[T any](ctx context.Context, db *gorm.DB, dest *T, query interface{}, args ...interface{}) (bool, error) {
	var found T
	err := db.WithContext(ctx).Where(query, args...).First(&found).Error
	if err == nil {
		*dest = found
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}

	res := db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(dest)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected > 0 {
		return true, nil
	}

	if err := db.WithContext(ctx).Where(query, args...).First(&found).Error; err != nil {
		return false, err
	}
	*dest = found
	return false, nil
}
