package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/school-admin-api/internal/models"
	appErrors "github.com/noah-isme/school-admin-api/pkg/errors"
)

const activeSessionCacheKey = "session:active"

type sessionRepository interface {
	FindActiveAcademicYear(ctx context.Context) (*models.AcademicYear, error)
	FindActiveSemester(ctx context.Context, yearID string) (*models.Semester, error)
}

// SessionService resolves the active academic year and semester through a read-through cache.
type SessionService struct {
	repo   sessionRepository
	cache  *CacheService
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time
}

// NewSessionService constructs the service. cache may be nil.
func NewSessionService(repo sessionRepository, cache *CacheService, ttl time.Duration, logger *zap.Logger) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionService{repo: repo, cache: cache, ttl: ttl, logger: logger, now: time.Now}
}

// Active returns the current session. It fails with not found when no academic year is Active.
func (s *SessionService) Active(ctx context.Context) (*models.ActiveSession, error) {
	session, _, err := s.Resolve(ctx)
	return session, err
}

// Resolve is Active that also reports whether the answer came from the cache.
func (s *SessionService) Resolve(ctx context.Context) (*models.ActiveSession, bool, error) {
	return readThrough(ctx, s.cache, activeSessionCacheKey, s.ttl, s.load)
}

func (s *SessionService) load(ctx context.Context) (*models.ActiveSession, error) {
	year, err := s.repo.FindActiveAcademicYear(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no active academic year")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load active academic year")
	}

	session := &models.ActiveSession{AcademicYear: year, ResolvedAt: s.now().UTC()}
	semester, err := s.repo.FindActiveSemester(ctx, year.ID)
	switch {
	case err == nil:
		session.Semester = semester
	case errors.Is(err, sql.ErrNoRows):
	default:
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load active semester")
	}
	return session, nil
}

// Invalidate drops the cached session. Failures are logged; the entry expires on its own.
func (s *SessionService) Invalidate(ctx context.Context) {
	if err := s.cache.Delete(ctx, activeSessionCacheKey); err != nil {
		s.logger.Warn("failed to invalidate active session", zap.Error(err))
	}
}
