package utils

import (
	"context"
	"errors"
)

// Check is one readiness probe.
type Check func(ctx context.Context) error

// Checks runs every probe and joins the failures.
func Checks(checks ...Check) Check {
	return func(ctx context.Context) error {
		var errs []error
		for _, c := range checks {
			if c == nil {
				continue
			}
			if err := c(ctx); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}
}
