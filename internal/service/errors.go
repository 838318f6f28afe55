package service

import "errors"

// ErrConflict means the record changed between load and save.
var ErrConflict = errors.New("record was changed concurrently, try again")
