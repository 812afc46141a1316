package domain

import (
	"context"
	"time"
)

// RunnerPort is the public port exposed by the module
type RunnerPort interface {
	Clean(ctx context.Context) (Result, error)
}

// SetAdmin lists and truncates sets
type SetAdmin interface {
	ListSets(ctx context.Context, namespace string) ([]SetInfo, error)
	Truncate(ctx context.Context, namespace, set string, before *time.Time) error
}
