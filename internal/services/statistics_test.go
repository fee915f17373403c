package services

import (
	"reflect"
	"testing"
	"time"

	"github.com/SAP-F-2025/exam-attempt-service/internal/models"
)

func submittedAttempt(id uint, studentID string, examID uint, score float64, at time.Time) *models.Attempt {
	return &models.Attempt{
		ID:          id,
		StudentID:   studentID,
		ExamID:      examID,
		Score:       score,
		SubmittedAt: &at,
	}
}

// statsExam is worth 10 points
func statsExam(id uint, creatorID string) *models.Exam {
	return &models.Exam{
		ID:        id,
		Title:     "exam",
		CreatorID: creatorID,
		Questions: []models.Question{{ID: id * 10, Points: 10}},
	}
}

func TestBestAttempts(t *testing.T) {
	tests := []struct {
		name     string
		attempts []*models.Attempt
		wantIDs  []uint
	}{
		{
			name: "highest score wins",
			attempts: []*models.Attempt{
				submittedAttempt(1, "s1", 1, 4, baseTime),
				submittedAttempt(2, "s1", 1, 7, baseTime.Add(time.Hour)),
			},
			wantIDs: []uint{2},
		},
		{
			name: "tie goes to earliest submission",
			attempts: []*models.Attempt{
				submittedAttempt(1, "s1", 1, 7, baseTime.Add(time.Hour)),
				submittedAttempt(2, "s1", 1, 7, baseTime),
			},
			wantIDs: []uint{2},
		},
		{
			name: "tie at same instant goes to lowest id",
			attempts: []*models.Attempt{
				submittedAttempt(5, "s1", 1, 7, baseTime),
				submittedAttempt(3, "s1", 1, 7, baseTime),
			},
			wantIDs: []uint{3},
		},
		{
			name: "unsubmitted attempts ignored",
			attempts: []*models.Attempt{
				{ID: 1, StudentID: "s1", ExamID: 1, Score: 9},
				submittedAttempt(2, "s1", 1, 1, baseTime),
			},
			wantIDs: []uint{2},
		},
		{
			name: "one per student and exam",
			attempts: []*models.Attempt{
				submittedAttempt(1, "s2", 1, 5, baseTime),
				submittedAttempt(2, "s1", 2, 5, baseTime),
				submittedAttempt(3, "s1", 1, 5, baseTime),
			},
			wantIDs: []uint{3, 1, 2},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ids []uint
			for _, a := range BestAttempts(tt.attempts) {
				ids = append(ids, a.ID)
			}
			if !reflect.DeepEqual(ids, tt.wantIDs) {
				t.Errorf("BestAttempts() ids = %v, want %v", ids, tt.wantIDs)
			}
		})
	}
}

func TestBestAttemptsIgnoresInputOrder(t *testing.T) {
	a := submittedAttempt(1, "s1", 1, 7, baseTime.Add(time.Minute))
	b := submittedAttempt(2, "s1", 1, 7, baseTime)

	first := BestAttempts([]*models.Attempt{a, b})
	second := BestAttempts([]*models.Attempt{b, a})
	if first[0].ID != second[0].ID {
		t.Errorf("selection depends on order: %d vs %d", first[0].ID, second[0].ID)
	}
}

func TestCompletionFunnel(t *testing.T) {
	exams := []*models.Exam{
		{ID: 2, Title: "B"},
		{ID: 1, Title: "A"},
	}
	counts := []models.AttemptCounts{{ExamID: 1, Started: 3, Completed: 2}}

	got := CompletionFunnel(exams, counts)
	want := []models.ExamCompletionStat{
		{ExamID: 1, ExamTitle: "A", Started: 3, Completed: 2},
		{ExamID: 2, ExamTitle: "B"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("CompletionFunnel() = %+v, want %+v", got, want)
	}
}

func TestUniversityRanking(t *testing.T) {
	snapshot := StatsSnapshot{
		Exams: []*models.Exam{
			statsExam(1, "e1"),
			{ID: 2, CreatorID: "e1"}, // zero points
		},
		Attempts: []*models.Attempt{
			// 40% then 70%: only the 70% counts, as a pass
			submittedAttempt(1, "hust-1", 1, 4, baseTime),
			submittedAttempt(2, "hust-1", 1, 7, baseTime.Add(time.Hour)),
			submittedAttempt(3, "hust-2", 1, 2, baseTime),
			submittedAttempt(4, "fpt-1", 1, 5, baseTime),
			submittedAttempt(5, "fpt-2", 1, 9, baseTime),
			submittedAttempt(6, "ghost", 1, 1, baseTime),
			submittedAttempt(7, "hust-2", 2, 0, baseTime),
			submittedAttempt(8, "orphan", 99, 10, baseTime),
		},
		Students: map[string]*models.User{
			"hust-1": {ID: "hust-1", University: "HUST"},
			"hust-2": {ID: "hust-2", University: "HUST"},
			"fpt-1":  {ID: "fpt-1", University: "FPT"},
			"fpt-2":  {ID: "fpt-2", University: "FPT"},
		},
	}

	got := UniversityRanking(snapshot, 50)
	want := []models.UniversityStat{
		{University: "FPT", Passed: 2, Failed: 0},
		{University: "HUST", Passed: 1, Failed: 1},
		{University: models.UnknownName, Passed: 0, Failed: 1},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("UniversityRanking() = %+v, want %+v", got, want)
	}
}

func TestUniversityRankingZeroPointExamOnly(t *testing.T) {
	snapshot := StatsSnapshot{
		Exams:    []*models.Exam{{ID: 1, CreatorID: "e1"}},
		Attempts: []*models.Attempt{submittedAttempt(1, "s1", 1, 0, baseTime)},
	}
	if got := UniversityRanking(snapshot, 50); len(got) != 0 {
		t.Errorf("UniversityRanking() = %+v, want empty", got)
	}
}

func TestEducatorPerformance(t *testing.T) {
	snapshot := StatsSnapshot{
		Exams: []*models.Exam{
			statsExam(1, "e1"),
			statsExam(2, "e2"),
			statsExam(3, "e-missing"),
		},
		Attempts: []*models.Attempt{
			submittedAttempt(1, "s1", 1, 8, baseTime),
			submittedAttempt(2, "s2", 1, 3, baseTime),
			submittedAttempt(3, "s1", 2, 2, baseTime),
			submittedAttempt(4, "s1", 3, 6, baseTime),
		},
		Students: map[string]*models.User{
			"s1": {ID: "s1", University: "HUST"},
			"s2": {ID: "s2", University: "FPT"},
		},
		Educators: map[string]*models.User{
			"e1": {ID: "e1", DisplayName: "Dr. Lan"},
			"e2": {ID: "e2", DisplayName: "Dr. Binh"},
		},
	}

	got := EducatorPerformance(snapshot, 50)
	want := []models.EducatorPerformance{
		{EducatorID: "e2", EducatorName: "Dr. Binh", UniversityStats: []models.UniversityStat{
			{University: "HUST", Passed: 0, Failed: 1},
		}},
		{EducatorID: "e1", EducatorName: "Dr. Lan", UniversityStats: []models.UniversityStat{
			{University: "HUST", Passed: 1, Failed: 0},
			{University: "FPT", Passed: 0, Failed: 1},
		}},
		{EducatorID: "e-missing", EducatorName: models.UnknownName, UniversityStats: []models.UniversityStat{
			{University: "HUST", Passed: 1, Failed: 0},
		}},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("EducatorPerformance() = %+v, want %+v", got, want)
	}
}
