package utils

import (
	"context"
	"errors"
	"testing"
)

func TestChecks_JoinsFailures(t *testing.T) {
	ok := func(context.Context) error { return nil }
	pg := errors.New("postgres down")
	rd := errors.New("redis down")

	if err := Checks(ok, nil)(context.Background()); err != nil {
		t.Fatalf("expected ready, got %v", err)
	}
	err := Checks(ok, func(context.Context) error { return pg }, func(context.Context) error { return rd })(context.Background())
	if !errors.Is(err, pg) || !errors.Is(err, rd) {
		t.Fatalf("expected both failures, got %v", err)
	}
}
