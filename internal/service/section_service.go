package service

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/uni-crs-api/internal/models"
	appErrors "github.com/noah-isme/uni-crs-api/pkg/errors"
	"github.com/noah-isme/uni-crs-api/pkg/export"
)

type sectionRepository interface {
	FindByID(ctx context.Context, id string) (*models.Section, error)
	FindDetailByID(ctx context.Context, id string) (*models.SectionDetail, error)
	Slots(ctx context.Context, sectionID string) ([]models.MeetingSlot, error)
	List(ctx context.Context, filter models.SectionFilter) ([]models.SectionDetail, int, error)
	Roster(ctx context.Context, sectionID string) ([]models.EnrollmentDetail, error)
	Waitlist(ctx context.Context, sectionID string) ([]models.EnrollmentDetail, error)
}

// RosterExport is a rendered roster document.
type RosterExport struct {
	FileName    string
	ContentType string
	Content     []byte
}

// SectionService serves section reads, rosters, and roster exports. Detail
// reads go through the cache; the durable seat counter itself is never
// cached, and every seat mutation invalidates the section's entries.
type SectionService struct {
	repo     sectionRepository
	cache    *CacheService
	cacheTTL time.Duration
	csv      *export.CSVExporter
	pdf      *export.PDFExporter
	logger   *zap.Logger
}

// NewSectionService constructs SectionService.
func NewSectionService(repo sectionRepository, cache *CacheService, cacheTTL time.Duration, logger *zap.Logger) *SectionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SectionService{
		repo:     repo,
		cache:    cache,
		cacheTTL: cacheTTL,
		csv:      export.NewCSVExporter(),
		pdf:      export.NewPDFExporter(),
		logger:   logger,
	}
}

// Get returns a section with course context and meeting slots. The second
// return value reports whether the detail came from the cache.
func (s *SectionService) Get(ctx context.Context, id string) (*models.SectionDetail, bool, error) {
	cacheKey := sectionCacheKey(id)
	if s.cache.Enabled() {
		var cached models.SectionDetail
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
			return &cached, true, nil
		}
	}

	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, false, appErrors.Clone(appErrors.ErrNotFound, "section not found")
		}
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section")
	}
	slots, err := s.repo.Slots(ctx, id)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section slots")
	}
	detail.Slots = slots

	if s.cache.Enabled() {
		_ = s.cache.Set(ctx, cacheKey, detail, s.cacheTTL)
	}
	return detail, false, nil
}

// List returns sections with pagination metadata.
func (s *SectionService) List(ctx context.Context, filter models.SectionFilter) ([]models.SectionDetail, *models.Pagination, error) {
	sections, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sections")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return sections, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Roster returns the registered students of a section.
func (s *SectionService) Roster(ctx context.Context, sectionID string) ([]models.EnrollmentDetail, error) {
	if _, err := s.repo.FindByID(ctx, sectionID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "section not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section")
	}
	roster, err := s.repo.Roster(ctx, sectionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}
	return roster, nil
}

// Waitlist returns the waitlisted students of a section in position order.
func (s *SectionService) Waitlist(ctx context.Context, sectionID string) ([]models.EnrollmentDetail, error) {
	if _, err := s.repo.FindByID(ctx, sectionID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "section not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section")
	}
	waitlist, err := s.repo.Waitlist(ctx, sectionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load waitlist")
	}
	return waitlist, nil
}

// ExportRoster renders the section roster as CSV or PDF.
func (s *SectionService) ExportRoster(ctx context.Context, sectionID, format string) (*RosterExport, error) {
	detail, err := s.repo.FindDetailByID(ctx, sectionID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "section not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section")
	}
	roster, err := s.repo.Roster(ctx, sectionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}

	dataset := export.Dataset{
		Headers: []string{"No", "NIM", "Name", "Status", "Enrolled At"},
	}
	for i, entry := range roster {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"No":          strconv.Itoa(i + 1),
			"NIM":         entry.StudentNIM,
			"Name":        entry.StudentName,
			"Status":      string(entry.Status),
			"Enrolled At": entry.EnrolledAt.Format("2006-01-02 15:04"),
		})
	}

	title := fmt.Sprintf("%s %s roster", detail.CourseCode, detail.Code)
	switch format {
	case "pdf":
		content, err := s.pdf.Render(dataset, title)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render roster pdf")
		}
		return &RosterExport{
			FileName:    fmt.Sprintf("roster_%s.pdf", detail.Code),
			ContentType: "application/pdf",
			Content:     content,
		}, nil
	case "", "csv":
		content, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render roster csv")
		}
		return &RosterExport{
			FileName:    fmt.Sprintf("roster_%s.csv", detail.Code),
			ContentType: "text/csv",
			Content:     content,
		}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}
}

// InvalidateSection drops cached reads for a section after a seat mutation.
func (s *SectionService) InvalidateSection(ctx context.Context, sectionID string) {
	if !s.cache.Enabled() {
		return
	}
	if err := s.cache.Invalidate(ctx, sectionCacheKey(sectionID)); err != nil {
		s.logger.Warn("section cache invalidation failed",
			zap.String("section_id", sectionID),
			zap.Error(err))
	}
}

func sectionCacheKey(id string) string {
	return "section:detail:" + id
}
