package main

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/noah-isme/school-admin-api/internal/service"
	"github.com/noah-isme/school-admin-api/pkg/config"
)

type exportJanitor interface {
	Cleanup(ttl time.Duration) ([]string, error)
}

type invariantChecker interface {
	Audit(ctx context.Context) (*service.InvariantReport, error)
}

// startMaintenance schedules export cleanup and the periodic invariant audit.
// Overlapping runs of the same job are skipped.
func startMaintenance(cfg config.CronConfig, exports exportJanitor, maxAge time.Duration, auditor invariantChecker, logr *zap.Logger) (*cron.Cron, error) {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))

	if cfg.ExportCleanupSpec != "" {
		if _, err := c.AddFunc(cfg.ExportCleanupSpec, func() {
			removed, err := exports.Cleanup(maxAge)
			if err != nil {
				logr.Warn("export cleanup failed", zap.Error(err))
				return
			}
			if len(removed) > 0 {
				logr.Info("export cleanup", zap.Int("removed", len(removed)))
			}
		}); err != nil {
			return nil, fmt.Errorf("schedule export cleanup: %w", err)
		}
	}

	if cfg.InvariantAuditSpec != "" {
		if _, err := c.AddFunc(cfg.InvariantAuditSpec, func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			// the auditor logs and counts violations itself
			if _, err := auditor.Audit(ctx); err != nil {
				logr.Warn("invariant audit failed", zap.Error(err))
			}
		}); err != nil {
			return nil, fmt.Errorf("schedule invariant audit: %w", err)
		}
	}

	c.Start()
	logr.Info("maintenance scheduled",
		zap.String("export_cleanup", cfg.ExportCleanupSpec),
		zap.String("invariant_audit", cfg.InvariantAuditSpec))
	return c, nil
}
