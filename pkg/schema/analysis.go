package schema

import (
	"time"

	// Packages
	types "github.com/mutablelogic/go-server/pkg/types"
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

// AnalysisState is the processing state of an uploaded object.
type AnalysisState string

const (
	AnalysisPending    AnalysisState = "pending"
	AnalysisProcessing AnalysisState = "processing"
	AnalysisCompleted  AnalysisState = "completed"
	AnalysisFailed     AnalysisState = "failed"
)

// AnalysisStatus is returned while an object is being analysed.
type AnalysisStatus struct {
	Status   AnalysisState `json:"status"`
	Progress int           `json:"progress"`
	Message  string        `json:"message,omitempty"`
	Error    string        `json:"error,omitempty"`
}

// Score is a single scored aspect of a report.
type Score struct {
	Score    float64  `json:"score"`
	Feedback string   `json:"feedback,omitempty"`
	Buckets  []Bucket `json:"buckets,omitempty"`
}

// Bucket is a named sub-score.
type Bucket struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// Report is the final output of analysis for an uploaded object.
type Report struct {
	Id            string    `json:"id"`
	OverallScore  float64   `json:"overall_score"`
	Communication Score     `json:"communication"`
	Appearance    Score     `json:"appearance"`
	Storytelling  Score     `json:"storytelling"`
	LLMReport     string    `json:"llm_report,omitempty"`
	CreatedAt     time.Time `json:"created_at,omitzero"`
}

////////////////////////////////////////////////////////////////////////////////
// STRINGIFY

func (s AnalysisStatus) String() string {
	return types.Stringify(s)
}

func (r Report) String() string {
	return types.Stringify(r)
}

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// Terminal reports whether analysis has finished, successfully or not.
func (s AnalysisState) Terminal() bool {
	return s == AnalysisCompleted || s == AnalysisFailed
}
