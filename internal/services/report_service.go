package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xuri/excelize/v2"
)

const (
	sheetCompletion   = "Completion"
	sheetUniversities = "Universities"
	sheetEducators    = "Educators"
)

type reportService struct {
	stats  StatisticsService
	logger *slog.Logger
}

func NewReportService(stats StatisticsService, logger *slog.Logger) ReportService {
	return &reportService{
		stats:  stats,
		logger: logger,
	}
}

func (s *reportService) ExportStatistics(ctx context.Context) ([]byte, error) {
	completion, err := s.stats.GetExamCompletionStats(ctx)
	if err != nil {
		return nil, err
	}
	ranking, err := s.stats.GetUniversityRanking(ctx)
	if err != nil {
		return nil, err
	}
	educators, err := s.stats.GetEducatorPerformance(ctx)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			s.logger.Warn("Failed to close workbook", "error", err)
		}
	}()

	if err := f.SetSheetName("Sheet1", sheetCompletion); err != nil {
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}
	completionRows := [][]interface{}{{"Exam ID", "Exam", "Started", "Completed"}}
	for _, c := range completion {
		completionRows = append(completionRows, []interface{}{c.ExamID, c.ExamTitle, c.Started, c.Completed})
	}
	if err := writeSheet(f, sheetCompletion, completionRows); err != nil {
		return nil, err
	}

	rankingRows := [][]interface{}{{"University", "Passed", "Failed"}}
	for _, r := range ranking {
		rankingRows = append(rankingRows, []interface{}{r.University, r.Passed, r.Failed})
	}
	if err := writeSheet(f, sheetUniversities, rankingRows); err != nil {
		return nil, err
	}

	educatorRows := [][]interface{}{{"Educator ID", "Educator", "University", "Passed", "Failed"}}
	for _, e := range educators {
		for _, u := range e.UniversityStats {
			educatorRows = append(educatorRows, []interface{}{e.EducatorID, e.EducatorName, u.University, u.Passed, u.Failed})
		}
	}
	if err := writeSheet(f, sheetEducators, educatorRows); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}

	s.logger.Info("Statistics workbook exported",
		"exams", len(completion),
		"universities", len(ranking),
		"educators", len(educators))
	return buf.Bytes(), nil
}

func writeSheet(f *excelize.File, sheet string, rows [][]interface{}) error {
	if idx, _ := f.GetSheetIndex(sheet); idx < 0 {
		if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("failed to create sheet %s: %w", sheet, err)
		}
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}
