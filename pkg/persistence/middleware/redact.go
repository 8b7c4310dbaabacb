package middleware

import (
	"context"
	"fmt"
	"regexp"

	"github.com/aretw0/pubflow/pkg/domain"
	"github.com/aretw0/pubflow/pkg/ports"
)

// Mask replaces every redacted match.
const Mask = "***"

type redactionMiddleware struct {
	next     ports.ReportStore
	patterns []*regexp.Regexp
}

// NewRedactionMiddleware creates a middleware that masks the matches of the
// patterns in task output and error text before a report is persisted.
// A pattern with a capture group only masks the first group, so
// `token=(\S+)` keeps the key readable.
func NewRedactionMiddleware(patternStrings []string) (Middleware, error) {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid redaction pattern %q: %w", p, err)
		}
		patterns[i] = re
	}
	return func(next ports.ReportStore) ports.ReportStore {
		return &redactionMiddleware{next: next, patterns: patterns}
	}, nil
}

func (m *redactionMiddleware) Save(ctx context.Context, report *domain.ExecutionReport) error {
	// The caller keeps the unmasked report.
	cloned := report.Clone()
	for _, res := range cloned.Results {
		res.Output = m.mask(res.Output)
		res.Error = m.mask(res.Error)
	}
	return m.next.Save(ctx, cloned)
}

func (m *redactionMiddleware) Load(ctx context.Context, runID string) (*domain.ExecutionReport, error) {
	return m.next.Load(ctx, runID)
}

func (m *redactionMiddleware) Delete(ctx context.Context, runID string) error {
	return m.next.Delete(ctx, runID)
}

func (m *redactionMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

func (m *redactionMiddleware) mask(s string) string {
	if s == "" {
		return s
	}
	for _, p := range m.patterns {
		if p.NumSubexp() == 0 {
			s = p.ReplaceAllString(s, Mask)
			continue
		}
		s = p.ReplaceAllStringFunc(s, func(match string) string {
			loc := p.FindStringSubmatchIndex(match)
			if len(loc) < 4 || loc[2] < 0 {
				return match
			}
			return match[:loc[2]] + Mask + match[loc[3]:]
		})
	}
	return s
}
