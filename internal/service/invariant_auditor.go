package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/school-admin-api/internal/lifecycle"
	"github.com/noah-isme/school-admin-api/internal/models"
)

type statusTreeSource interface {
	StatusTree(ctx context.Context) ([]lifecycle.Record, error)
}

// InvariantReport is the outcome of one audit run.
type InvariantReport struct {
	Violations  []lifecycle.Violation `json:"violations"`
	StrayActive []string              `json:"strayActive"`
	CheckedAt   time.Time             `json:"checkedAt"`
}

// Healthy reports whether the audit found nothing.
func (r *InvariantReport) Healthy() bool {
	return len(r.Violations) == 0 && len(r.StrayActive) == 0
}

// InvariantAuditor re-checks the stored period tree: at most one Active academic
// year, at most one Active semester per year, and no Active record below an
// Archived parent.
type InvariantAuditor struct {
	source  statusTreeSource
	metrics *MetricsService
	logger  *zap.Logger
}

// NewInvariantAuditor constructs the auditor.
func NewInvariantAuditor(source statusTreeSource, metrics *MetricsService, logger *zap.Logger) *InvariantAuditor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InvariantAuditor{source: source, metrics: metrics, logger: logger}
}

// Audit loads the tree and reports violations.
func (a *InvariantAuditor) Audit(ctx context.Context) (*InvariantReport, error) {
	years, err := a.source.StatusTree(ctx)
	if err != nil {
		return nil, internalError(err, "failed to load period tree")
	}

	// Sections cascade but many may be Active at once, so only the year and
	// semester levels are checked for single-active.
	trimmed := make([]lifecycle.Record, len(years))
	for i, y := range years {
		trimmed[i] = y
		trimmed[i].Children = make([]lifecycle.Record, len(y.Children))
		for j, s := range y.Children {
			trimmed[i].Children[j] = s
			trimmed[i].Children[j].Children = nil
		}
	}

	report := &InvariantReport{
		Violations:  lifecycle.Violations("academic_years", trimmed),
		StrayActive: []string{},
		CheckedAt:   time.Now().UTC(),
	}
	if report.Violations == nil {
		report.Violations = []lifecycle.Violation{}
	}
	for _, y := range years {
		report.StrayActive = append(report.StrayActive, strayActive(y)...)
	}

	a.metrics.SetInvariantViolations(len(report.Violations) + len(report.StrayActive))
	if !report.Healthy() {
		a.logger.Warn("period invariant violated",
			zap.Int("sibling_violations", len(report.Violations)),
			zap.Strings("stray_active", report.StrayActive),
		)
	} else {
		a.logger.Debug("period invariant holds", zap.Int("academic_years", len(years)))
	}
	return report, nil
}

func strayActive(parent lifecycle.Record) []string {
	var out []string
	for _, child := range parent.Children {
		if parent.Status == models.StatusArchived && child.Status == models.StatusActive {
			out = append(out, child.Path)
		}
		out = append(out, strayActive(child)...)
	}
	return out
}
