// Package service truncates every set of a namespace whose name starts with a prefix
package service

import (
	"context"
	"fmt"
	"io"
	"strings"

	perr "asdelete/internal/platform/errors"
	"asdelete/internal/platform/logger"
	"asdelete/internal/platform/metrics"
	pstrings "asdelete/internal/platform/strings"
	ptime "asdelete/internal/platform/time"
	"asdelete/internal/services/cleansets/domain"
)

// Service runs cleanup passes against one namespace
type Service struct {
	Admin domain.SetAdmin
	Cfg   domain.Config

	metrics *metrics.SweepMetrics
	out     io.Writer
}

// Option customizes a Service
type Option func(*Service)

// WithMetrics counts truncations in m
func WithMetrics(m *metrics.SweepMetrics) Option { return func(s *Service) { s.metrics = m } }

// WithOutput prints the per set lines and the final count to w
func WithOutput(w io.Writer) Option { return func(s *Service) { s.out = w } }

// New constructs the cleansets service
func New(admin domain.SetAdmin, cfg domain.Config, opts ...Option) *Service {
	if admin == nil {
		panic("cleansets.Service requires a non nil SetAdmin")
	}
	s := &Service{Admin: admin, Cfg: cfg, out: io.Discard}
	for _, o := range opts {
		o(s)
	}
	return s
}

// SanitizePrefix keeps ASCII letters, digits and underscores
// an empty result would match every set and is rejected
func SanitizePrefix(raw string) (string, error) {
	p := pstrings.KeepWord(raw)
	if p == "" {
		return "", perr.InvalidArgf("set prefix %q is empty after removing non word characters", raw)
	}
	return p, nil
}

// Clean implements domain.RunnerPort
// a set that fails to truncate is reported and the pass moves on
func (s *Service) Clean(ctx context.Context) (domain.Result, error) {
	prefix, err := SanitizePrefix(s.Cfg.Prefix)
	if err != nil {
		return domain.Result{}, err
	}
	ns := s.Cfg.Namespace
	l := logger.C(ctx).With().Str("mod", "cleansets").Str("namespace", ns).Str("prefix", prefix).Logger()
	_, _ = fmt.Fprintf(s.out, "setprefix: '%s'\n", prefix)

	sets, err := s.Admin.ListSets(ctx, ns)
	if err != nil {
		if _, ok := perr.As(err); !ok {
			err = perr.Wrap(err, perr.ErrorCodeConnection, "list sets")
		}
		return domain.Result{}, err
	}
	res := domain.Result{Prefix: prefix, Total: len(sets)}
	_, _ = fmt.Fprintf(s.out, "Found total sets: %d\n", res.Total)

	before := ptime.Ptr(s.Cfg.Before)
	for _, set := range sets {
		if !strings.HasPrefix(set.Name, prefix) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return res, perr.Wrap(err, perr.ErrorCodeUnavailable, "cleanup canceled")
		}
		res.Matched = append(res.Matched, set.Name)
		name := fmt.Sprintf("'%s.%s'.", ns, set.Name)

		if s.Cfg.DryRun {
			_, _ = fmt.Fprintf(s.out, "Would delete: %-50s objects: %d\n", name, set.Objects)
			s.metrics.RecordTruncation(metrics.OutcomeDryRun)
			continue
		}

		_, _ = fmt.Fprintf(s.out, "Deleting: %-50s objects: %d\n", name, set.Objects)
		if err := s.Admin.Truncate(ctx, ns, set.Name, before); err != nil {
			res.Failed = append(res.Failed, set.Name)
			s.metrics.RecordTruncation(metrics.OutcomeFailed)
			l.Warn().Err(err).Str("set", set.Name).Msg("cleansets: truncate failed")
			_, _ = fmt.Fprintf(s.out, "Failed: %s %v\n", name, err)
			continue
		}
		res.Deleted = append(res.Deleted, set.Name)
		s.metrics.RecordTruncation(metrics.OutcomeOK)
	}

	_, _ = fmt.Fprintf(s.out, "Deleted sets: %d/%d\n", len(res.Deleted), res.Total)
	l.Info().
		Int("total", res.Total).
		Int("matched", len(res.Matched)).
		Int("deleted", len(res.Deleted)).
		Int("failed", len(res.Failed)).
		Bool("dry_run", s.Cfg.DryRun).
		Msg("cleansets: done")
	return res, nil
}

var _ domain.RunnerPort = (*Service)(nil)
