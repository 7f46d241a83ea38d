package service

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/acadops-api/internal/dto"
	"github.com/noah-isme/acadops-api/internal/models"
	"github.com/noah-isme/acadops-api/pkg/export"
	"github.com/noah-isme/acadops-api/pkg/storage"
)

type exportPlanSource interface {
	Get(ctx context.Context, id string) (*dto.DraftResponse, error)
	ListSessions(ctx context.Context, id string) (*models.SessionPlan, error)
}

type exportTeacherLister interface {
	ListActiveByBranch(ctx context.Context, branchID string) ([]models.Teacher, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type datasetRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ExportFormat
	ExpiresAt    time.Time
}

// ExportService builds session plan datasets and persists rendered files.
type ExportService struct {
	plans     exportPlanSource
	slots     timeSlotCatalog
	resources resourceCatalog
	teachers  exportTeacherLister
	storage   fileStorage
	csv       datasetRenderer
	pdf       datasetRenderer
	signer    *storage.SignedURLSigner
	logger    *zap.Logger
	cfg       ExportConfig
}

// NewExportService constructs an ExportService.
func NewExportService(plans exportPlanSource, slots timeSlotCatalog, resources resourceCatalog, teachers exportTeacherLister, storage fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger, csv, pdf datasetRenderer) *ExportService {
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
		plans:     plans,
		slots:     slots,
		resources: resources,
		teachers:  teachers,
		storage:   storage,
		csv:       csv,
		pdf:       pdf,
		signer:    signer,
		logger:    logger,
		cfg:       cfg,
	}
}

// Generate renders the class session plan in the job's format and stores it behind a signed URL.
func (s *ExportService) Generate(ctx context.Context, job *models.ScheduleExport) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	dataset, err := s.BuildDataset(ctx, job.ClassID)
	if err != nil {
		return nil, err
	}

	var payload []byte
	switch job.Format {
	case models.ExportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case models.ExportFormatPDF:
		payload, err = s.pdf.Render(dataset)
	default:
		err = fmt.Errorf("unsupported format %s", job.Format)
	}
	if err != nil {
		return nil, err
	}

	relPath, err := s.storage.Save(s.buildFilename(job), payload)
	if err != nil {
		return nil, err
	}
	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return nil, err
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}

	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          fmt.Sprintf("%s/exports/download/%s", prefix, token),
		Format:       job.Format,
		ExpiresAt:    expiresAt,
	}, nil
}

// BuildDataset assembles one row per session with resolved time slot, resource and teacher names.
func (s *ExportService) BuildDataset(ctx context.Context, classID string) (export.Dataset, error) {
	draft, err := s.plans.Get(ctx, classID)
	if err != nil {
		return export.Dataset{}, err
	}
	plan, err := s.plans.ListSessions(ctx, classID)
	if err != nil {
		return export.Dataset{}, err
	}

	slotNames := map[string]string{}
	slots, err := s.slots.ListByBranch(ctx, draft.BranchID)
	if err != nil {
		return export.Dataset{}, err
	}
	for _, slot := range slots {
		slotNames[slot.ID] = fmt.Sprintf("%s %s-%s", slot.Name, slot.StartTime, slot.EndTime)
	}
	resourceNames := map[string]string{}
	resources, err := s.resources.ListByBranch(ctx, draft.BranchID)
	if err != nil {
		return export.Dataset{}, err
	}
	for _, r := range resources {
		resourceNames[r.ID] = r.Name
	}
	teacherNames := map[string]string{}
	teachers, err := s.teachers.ListActiveByBranch(ctx, draft.BranchID)
	if err != nil {
		return export.Dataset{}, err
	}
	for _, t := range teachers {
		teacherNames[t.ID] = t.Name
	}

	headers := []string{"No", "Week", "Date", "Day", "Time Slot", "Resource", "Teacher"}
	rows := make([]map[string]string, 0, plan.TotalSessions)
	for _, week := range plan.Weeks {
		for _, session := range week.Sessions {
			rows = append(rows, map[string]string{
				"No":        strconv.Itoa(session.Sequence),
				"Week":      strconv.Itoa(session.WeekNumber),
				"Date":      session.Date.Format(dto.DateLayout),
				"Day":       session.DayOfWeek.String(),
				"Time Slot": lookupName(slotNames, session.TimeSlotID),
				"Resource":  lookupName(resourceNames, session.ResourceID),
				"Teacher":   lookupName(teacherNames, session.TeacherID),
			})
		}
	}

	approval := "NONE"
	if a := draft.Approval(); a != "" {
		approval = string(a)
	}
	summary := []string{
		fmt.Sprintf("Period: %s to %s", draft.StartDate.Format(dto.DateLayout), draft.PlannedEndDate.Format(dto.DateLayout)),
		fmt.Sprintf("Sessions: %d", plan.TotalSessions),
		fmt.Sprintf("Status: %s / %s", draft.Status, approval),
	}
	return export.Dataset{
		Title:   fmt.Sprintf("Session Plan %s %s", draft.Code, draft.Name),
		Summary: summary,
		Headers: headers,
		Rows:    rows,
	}, nil
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than ttl (defaults to configured ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func (s *ExportService) buildFilename(job *models.ScheduleExport) string {
	timestamp := time.Now().UTC().Format("20060102_150405")
	return fmt.Sprintf("session_plan_%s_%s.%s", sanitizeFilename(job.ClassID), timestamp, job.Format)
}

func lookupName(names map[string]string, id *string) string {
	if id == nil {
		return ""
	}
	if name, ok := names[*id]; ok {
		return name
	}
	return *id
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
