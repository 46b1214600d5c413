package logistics

import "errors"

var (
	ErrNotFound   = errors.New("logistics: not found")
	ErrValidation = errors.New("logistics: validation failed")
	ErrConflict   = errors.New("logistics: conflict")
)
