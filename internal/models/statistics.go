package models

type ExamCompletionStat struct {
	ExamID    uint   `json:"exam_id"`
	ExamTitle string `json:"exam_title"`
	Started   int64  `json:"started"`
	Completed int64  `json:"completed"`
}

type UniversityStat struct {
	University string `json:"university"`
	Passed     int    `json:"passed"`
	Failed     int    `json:"failed"`
}

type EducatorPerformance struct {
	EducatorID      string           `json:"educator_id"`
	EducatorName    string           `json:"educator_name"`
	UniversityStats []UniversityStat `json:"university_stats"`
}

// AttemptCounts is the raw completion funnel for one exam.
type AttemptCounts struct {
	ExamID    uint  `json:"exam_id"`
	Started   int64 `json:"started"`
	Completed int64 `json:"completed"`
}
