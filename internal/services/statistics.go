package services

import (
	"cmp"
	"slices"

	"github.com/SAP-F-2025/exam-attempt-service/internal/models"
)

// StatsSnapshot is the data every aggregate is reduced from. Exams carry
// their questions so totals reflect the current point weights.
type StatsSnapshot struct {
	Exams    []*models.Exam
	Counts   []models.AttemptCounts
	Attempts []*models.Attempt // submitted only
	// Students and Educators are keyed by user id; missing entries resolve to Unknown
	Students  map[string]*models.User
	Educators map[string]*models.User
}

type studentExam struct {
	studentID string
	examID    uint
}

// betterAttempt reports whether a outranks b: higher score, then earlier
// submission, then lower id.
func betterAttempt(a, b *models.Attempt) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	as, bs := a.SubmittedAt, b.SubmittedAt
	switch {
	case as != nil && bs != nil && !as.Equal(*bs):
		return as.Before(*bs)
	case as != nil && bs == nil:
		return true
	case as == nil && bs != nil:
		return false
	}
	return a.ID < b.ID
}

// BestAttempts keeps one attempt per (student, exam). Unsubmitted attempts
// are ignored. The result is ordered by exam id, then student id.
func BestAttempts(attempts []*models.Attempt) []*models.Attempt {
	best := make(map[studentExam]*models.Attempt)
	for _, a := range attempts {
		if !a.IsSubmitted() {
			continue
		}
		key := studentExam{studentID: a.StudentID, examID: a.ExamID}
		if current, ok := best[key]; !ok || betterAttempt(a, current) {
			best[key] = a
		}
	}

	out := make([]*models.Attempt, 0, len(best))
	for _, a := range best {
		out = append(out, a)
	}
	slices.SortFunc(out, func(a, b *models.Attempt) int {
		return cmp.Or(cmp.Compare(a.ExamID, b.ExamID), cmp.Compare(a.StudentID, b.StudentID))
	})
	return out
}

// CompletionFunnel reports started and completed counts for every exam,
// including exams nobody has attempted.
func CompletionFunnel(exams []*models.Exam, counts []models.AttemptCounts) []models.ExamCompletionStat {
	byExam := make(map[uint]models.AttemptCounts, len(counts))
	for _, c := range counts {
		byExam[c.ExamID] = c
	}

	stats := make([]models.ExamCompletionStat, 0, len(exams))
	for _, e := range exams {
		c := byExam[e.ID]
		stats = append(stats, models.ExamCompletionStat{
			ExamID:    e.ID,
			ExamTitle: e.Title,
			Started:   c.Started,
			Completed: c.Completed,
		})
	}
	slices.SortFunc(stats, func(a, b models.ExamCompletionStat) int {
		return cmp.Compare(a.ExamID, b.ExamID)
	})
	return stats
}

// tally accumulates pass and fail counts per university
type tally map[string]*models.UniversityStat

func (t tally) add(university string, outcome Outcome) {
	stat, ok := t[university]
	if !ok {
		stat = &models.UniversityStat{University: university}
		t[university] = stat
	}
	switch outcome {
	case OutcomePass:
		stat.Passed++
	case OutcomeFail:
		stat.Failed++
	}
}

// ranked orders by passed descending, then university name
func (t tally) ranked() []models.UniversityStat {
	out := make([]models.UniversityStat, 0, len(t))
	for _, s := range t {
		if s.Passed == 0 && s.Failed == 0 {
			continue
		}
		out = append(out, *s)
	}
	slices.SortFunc(out, func(a, b models.UniversityStat) int {
		return cmp.Or(cmp.Compare(b.Passed, a.Passed), cmp.Compare(a.University, b.University))
	})
	return out
}

type gradedAttempt struct {
	attempt    *models.Attempt
	exam       *models.Exam
	university string
	outcome    Outcome
}

// grade resolves the exam and student university of every best attempt.
// Attempts whose exam is gone are dropped.
func grade(snapshot StatsSnapshot, threshold float64) []gradedAttempt {
	exams := make(map[uint]*models.Exam, len(snapshot.Exams))
	for _, e := range snapshot.Exams {
		exams[e.ID] = e
	}

	best := BestAttempts(snapshot.Attempts)
	graded := make([]gradedAttempt, 0, len(best))
	for _, a := range best {
		exam, ok := exams[a.ExamID]
		if !ok {
			continue
		}
		graded = append(graded, gradedAttempt{
			attempt:    a,
			exam:       exam,
			university: snapshot.Students[a.StudentID].UniversityOrUnknown(),
			outcome:    EvaluateOutcome(a.Score, exam.TotalPoints(), threshold),
		})
	}
	return graded
}

// UniversityRanking counts best-attempt passes and failures per student
// university. Exams worth zero points count toward neither.
func UniversityRanking(snapshot StatsSnapshot, threshold float64) []models.UniversityStat {
	t := tally{}
	for _, g := range grade(snapshot, threshold) {
		t.add(g.university, g.outcome)
	}
	return t.ranked()
}

// EducatorPerformance breaks best-attempt outcomes down by exam creator and
// then by student university. Educators are ordered by name, then id.
func EducatorPerformance(snapshot StatsSnapshot, threshold float64) []models.EducatorPerformance {
	byEducator := make(map[string]tally)
	for _, g := range grade(snapshot, threshold) {
		t, ok := byEducator[g.exam.CreatorID]
		if !ok {
			t = tally{}
			byEducator[g.exam.CreatorID] = t
		}
		t.add(g.university, g.outcome)
	}

	out := make([]models.EducatorPerformance, 0, len(byEducator))
	for educatorID, t := range byEducator {
		stats := t.ranked()
		if len(stats) == 0 {
			continue
		}
		out = append(out, models.EducatorPerformance{
			EducatorID:      educatorID,
			EducatorName:    educatorName(snapshot.Educators[educatorID]),
			UniversityStats: stats,
		})
	}
	slices.SortFunc(out, func(a, b models.EducatorPerformance) int {
		return cmp.Or(cmp.Compare(a.EducatorName, b.EducatorName), cmp.Compare(a.EducatorID, b.EducatorID))
	})
	return out
}

func educatorName(u *models.User) string {
	if u == nil || u.DisplayName == "" {
		return models.UnknownName
	}
	return u.DisplayName
}
