package registry

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/hupe1980/researchflow/agent"
	"github.com/hupe1980/researchflow/model"
)

// Mode selects what Sync may change.
type Mode string

const (
	// ModeCreate registers missing agents only.
	ModeCreate Mode = "create"
	// ModeUpdate updates already registered agents only.
	ModeUpdate Mode = "update"
	// ModeSync creates missing and updates existing agents.
	ModeSync Mode = "sync"
)

// ParseMode parses a mode name.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeCreate, ModeUpdate, ModeSync:
		return m, nil
	default:
		return "", fmt.Errorf("unknown sync mode %q (expected create, update or sync)", s)
	}
}

func (m Mode) creates() bool { return m == ModeCreate || m == ModeSync }
func (m Mode) updates() bool { return m == ModeUpdate || m == ModeSync }

// Report lists the agent names per outcome of a Sync.
type Report struct {
	Created   []string
	Updated   []string
	Unchanged []string
	// Skipped holds agents the mode did not allow to touch.
	Skipped []string
}

// Changed reports whether the sync wrote anything.
func (r *Report) Changed() bool { return len(r.Created)+len(r.Updated) > 0 }

// Sync brings the registry in line with defs according to mode. Definitions
// whose digest matches the stored version are left alone, so running Sync
// twice with the same input changes nothing the second time. All writes
// happen in one transaction.
func (s *Store) Sync(ctx context.Context, defs []agent.Definition, mode Mode) (*Report, error) {
	if _, err := ParseMode(string(mode)); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(defs))
	for _, d := range defs {
		if err := d.Validate(); err != nil {
			return nil, err
		}
		if _, dup := seen[d.Name]; dup {
			return nil, fmt.Errorf("duplicate agent %q", d.Name)
		}
		seen[d.Name] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	report := &Report{}

	for _, d := range defs {
		current, err := get(ctx, tx, d.Name)
		missing := errors.Is(err, ErrNotFound)
		if err != nil && !missing {
			return nil, err
		}

		switch {
		case missing && mode.creates():
			if err := s.put(ctx, tx, d, 1); err != nil {
				return nil, err
			}
			report.Created = append(report.Created, d.Name)
		case missing:
			report.Skipped = append(report.Skipped, d.Name)
		case current.Digest == d.Digest():
			report.Unchanged = append(report.Unchanged, d.Name)
		case mode.updates():
			if err := s.put(ctx, tx, d, current.Version+1); err != nil {
				return nil, err
			}
			report.Updated = append(report.Updated, d.Name)
		default:
			report.Skipped = append(report.Skipped, d.Name)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit sync: %w", err)
	}

	s.opts.Logger.Info("registry.sync",
		"mode", mode,
		"created", len(report.Created),
		"updated", len(report.Updated),
		"unchanged", len(report.Unchanged),
		"skipped", len(report.Skipped),
	)

	return report, nil
}

// StripReasoningSampling clears the temperature of every registered agent
// that runs on a reasoning model, since those models reject sampling
// parameters. Only the named agents are considered when names is non-empty.
// It returns the names of the agents that received a new version.
func (s *Store) StripReasoningSampling(ctx context.Context, names ...string) ([]string, error) {
	recs, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[n] = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var stripped []string
	for _, r := range recs {
		if len(wanted) > 0 && !wanted[r.Name] {
			continue
		}
		if r.Definition.Temperature == nil || !model.IsReasoningModel(r.Definition.Model) {
			continue
		}

		d := r.Definition
		d.Temperature = nil

		if err := s.put(ctx, tx, d, r.Version+1); err != nil {
			return nil, err
		}
		stripped = append(stripped, r.Name)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit maintenance: %w", err)
	}

	s.opts.Logger.Info("registry.maintenance.strip_sampling", "agents", len(stripped))

	return stripped, nil
}

// ParseSelection parses a 1-based selection such as "1-3,5,7-9" against a
// list of count items. The result is sorted and free of duplicates. "a", "all"
// and the empty string select everything.
func ParseSelection(choice string, count int) ([]int, error) {
	choice = strings.ToLower(strings.TrimSpace(choice))
	if choice == "" || choice == "a" || choice == "all" {
		all := make([]int, count)
		for i := range all {
			all[i] = i + 1
		}
		return all, nil
	}

	set := map[int]bool{}
	for _, part := range strings.Split(choice, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		lo, hi, isRange := strings.Cut(part, "-")

		start, err := strconv.Atoi(strings.TrimSpace(lo))
		if err != nil {
			return nil, fmt.Errorf("invalid selection %q", part)
		}
		end := start

		if isRange {
			if end, err = strconv.Atoi(strings.TrimSpace(hi)); err != nil || start > end {
				return nil, fmt.Errorf("invalid range %q", part)
			}
		}

		if start < 1 || end > count {
			return nil, fmt.Errorf("selection %q out of range 1-%d", part, count)
		}

		for i := start; i <= end; i++ {
			set[i] = true
		}
	}

	out := make([]int, 0, len(set))
	for i := 1; i <= count; i++ {
		if set[i] {
			out = append(out, i)
		}
	}

	return out, nil
}

// Select returns the definitions picked by a ParseSelection expression.
func Select(defs []agent.Definition, choice string) ([]agent.Definition, error) {
	idx, err := ParseSelection(choice, len(defs))
	if err != nil {
		return nil, err
	}

	out := make([]agent.Definition, len(idx))
	for i, n := range idx {
		out[i] = defs[n-1]
	}
	return out, nil
}
