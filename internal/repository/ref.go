package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// ShortRefLen is how many characters of an obligation id are shown to users.
const ShortRefLen = 8

// ErrAmbiguousRef is returned when a short id matches more than one row.
var ErrAmbiguousRef = errors.New("reference matches more than one record")

// ShortRef returns the user-facing prefix of an id.
func ShortRef(id string) string {
	if len(id) <= ShortRefLen {
		return id
	}
	return id[:ShortRefLen]
}

// findByRef loads the row owned by userID whose id equals ref or starts with it.
func findByRef[T any](ctx context.Context, db *gorm.DB, userID uint, ref string) (*T, error) {
	ref = strings.ToLower(strings.TrimSpace(ref))
	if ref == "" || strings.ContainsAny(ref, "%_") {
		return nil, gorm.ErrRecordNotFound
	}

	var rows []T
	if err := db.WithContext(ctx).Where("user_id = ? AND id LIKE ?", userID, ref+"%").
		Limit(2).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("find by ref: %w", err)
	}
	switch len(rows) {
	case 0:
		return nil, gorm.ErrRecordNotFound
	case 1:
		return &rows[0], nil
	default:
		return nil, ErrAmbiguousRef
	}
}
