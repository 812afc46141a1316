package service

import (
	"context"
	"slices"

	perr "asdelete/internal/platform/errors"
	"asdelete/internal/services/sweep/domain"
)

// rewriteTTL is the ttl given to a rewritten record; the server expires it a second later
const rewriteTTL uint32 = 1

// Strategy removes one candidate record
// rewrote reports whether the record was rewritten rather than deleted
type Strategy interface {
	Name() domain.Strategy
	Apply(ctx context.Context, rec domain.Record) (rewrote bool, err error)
}

// NewStrategy returns the strategy for kind backed by d
func NewStrategy(kind domain.Strategy, d domain.Deleter) (Strategy, error) {
	if d == nil {
		return nil, perr.InvalidArgf("strategy %q needs a deleter", kind)
	}
	switch kind {
	case domain.StrategyExplicit, "":
		return explicitDelete{d: d}, nil
	case domain.StrategyRewrite:
		return rewriteDelete{d: d}, nil
	}
	return nil, perr.InvalidArgf("unknown strategy %q", kind)
}

type explicitDelete struct{ d domain.Deleter }

func (s explicitDelete) Name() domain.Strategy { return domain.StrategyExplicit }

func (s explicitDelete) Apply(ctx context.Context, rec domain.Record) (bool, error) {
	return false, s.d.Delete(ctx, rec)
}

// rewriteDelete writes the first bin back unchanged with a one second ttl
// records without bins cannot be rewritten and are deleted instead
type rewriteDelete struct{ d domain.Deleter }

func (s rewriteDelete) Name() domain.Strategy { return domain.StrategyRewrite }

func (s rewriteDelete) Apply(ctx context.Context, rec domain.Record) (bool, error) {
	bin, ok := firstBin(rec.Bins)
	if !ok {
		return false, s.d.Delete(ctx, rec)
	}
	if err := s.d.Rewrite(ctx, rec, bin, rec.Bins[bin], rewriteTTL); err != nil {
		return false, err
	}
	return true, nil
}

// firstBin picks a stable bin name so repeated runs touch the same bin
func firstBin(bins map[string]any) (string, bool) {
	if len(bins) == 0 {
		return "", false
	}
	names := make([]string, 0, len(bins))
	for k := range bins {
		names = append(names, k)
	}
	slices.Sort(names)
	return names[0], true
}
