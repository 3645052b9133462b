package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/school-admin-api/internal/models"
	appErrors "github.com/noah-isme/school-admin-api/pkg/errors"
	"github.com/noah-isme/school-admin-api/pkg/export"
	"github.com/noah-isme/school-admin-api/pkg/storage"
)

// ExportFormat selects the rendering of an export.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type timetableSource interface {
	GetSection(ctx context.Context, scope models.Scope, id string) (*models.Section, error)
}

type timetableRepository interface {
	ListBySection(ctx context.Context, scope models.Scope) ([]models.Schedule, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string       `json:"-"`
	Token        string       `json:"token"`
	URL          string       `json:"url"`
	Format       ExportFormat `json:"format"`
	ExpiresAt    time.Time    `json:"expiresAt"`
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, doc export.Document) ([]byte, error)
}

// ExportService renders section timetables and hands out signed download links.
type ExportService struct {
	sections  timetableSource
	schedules timetableRepository
	storage   fileStorage
	csv       csvRenderer
	pdf       pdfRenderer
	signer    *storage.SignedURLSigner
	logger    *zap.Logger
	cfg       ExportConfig
}

// NewExportService constructs an ExportService.
func NewExportService(sections timetableSource, schedules timetableRepository, files fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		sections:  sections,
		schedules: schedules,
		storage:   files,
		csv:       csv,
		pdf:       pdf,
		signer:    signer,
		logger:    logger,
		cfg:       cfg,
	}
}

var timetableHeaders = []string{"Subject Code", "Subject Name", "Days", "Start", "End", "Room", "Instructor"}

// ExportTimetable renders a section's schedules and stores the file.
func (s *ExportService) ExportTimetable(ctx context.Context, scope models.Scope, format ExportFormat) (*ExportResult, error) {
	if format != ExportFormatCSV && format != ExportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
	section, err := s.sections.GetSection(ctx, scope, scope.SectionID)
	if err != nil {
		return nil, err
	}
	schedules, err := s.schedules.ListBySection(ctx, scope)
	if err != nil {
		return nil, internalError(err, "failed to load schedules")
	}

	dataset := export.Dataset{Headers: timetableHeaders}
	for _, sc := range schedules {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Subject Code": sc.SubjectCode,
			"Subject Name": sc.SubjectName,
			"Days":         strings.Join(sc.Days.Labels(), " "),
			"Start":        sc.StartTime,
			"End":          sc.EndTime,
			"Room":         sc.RoomName,
			"Instructor":   sc.InstructorID,
		})
	}

	var payload []byte
	switch format {
	case ExportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case ExportFormatPDF:
		payload, err = s.pdf.Render(dataset, export.Document{
			Title:     "Class Schedule",
			Subtitle:  "Section " + section.SectionName,
			Landscape: true,
		})
	}
	if err != nil {
		return nil, internalError(err, "failed to render timetable")
	}

	filename := fmt.Sprintf("timetables/%s_%s.%s", sanitizeFilename(section.SectionName), time.Now().UTC().Format("20060102_150405"), format)
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return nil, internalError(err, "failed to store timetable")
	}

	token, expiresAt, err := s.signer.Generate(section.ID, relPath)
	if err != nil {
		return nil, internalError(err, "failed to sign download link")
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	s.logger.Info("timetable exported", zap.String("section_id", section.ID), zap.String("format", string(format)), zap.Int("rows", len(dataset.Rows)))
	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          fmt.Sprintf("%s/exports/%s", prefix, token),
		Format:       format,
		ExpiresAt:    expiresAt,
	}, nil
}

// Open validates a download token and returns the stored file with its name.
func (s *ExportService) Open(ctx context.Context, token string) (io.ReadCloser, string, error) {
	claims, err := s.signer.Verify(token)
	if errors.Is(err, storage.ErrTokenExpired) {
		return nil, "", appErrors.Clone(appErrors.ErrForbidden, "download link has expired")
	}
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrForbidden, "download link is invalid")
	}
	relPath := claims.Key
	file, err := s.storage.Get(ctx, relPath)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, "", appErrors.Clone(appErrors.ErrNotFound, "export no longer available")
		}
		return nil, "", internalError(err, "failed to open export")
	}
	name := relPath
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		name = name[idx+1:]
	}
	return file, name, nil
}

// Cleanup removes files older than ttl (defaults to configured ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
