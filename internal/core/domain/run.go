package domain

import (
	"fmt"
	"time"
)

type Stage string

const (
	StageIdle            Stage = "idle"
	StageDocumentsLoaded Stage = "documents_loaded"
	StageCorpusAssembled Stage = "corpus_assembled"
	StagePromptAssembled Stage = "prompt_assembled"
	StageGenerating      Stage = "generating"
	StageCompleted       Stage = "completed"
	StageFailed          Stage = "failed"
)

var stageOrder = map[Stage]int{
	StageIdle:            0,
	StageDocumentsLoaded: 1,
	StageCorpusAssembled: 2,
	StagePromptAssembled: 3,
	StageGenerating:      4,
	StageCompleted:       5,
	StageFailed:          5,
}

// Terminal reports whether no further transition is allowed.
func (s Stage) Terminal() bool {
	return s == StageCompleted || s == StageFailed
}

// CanAdvanceTo allows only the next stage; Generating may end in Completed or Failed.
func (s Stage) CanAdvanceTo(next Stage) bool {
	if s.Terminal() {
		return false
	}
	cur, ok := stageOrder[s]
	if !ok {
		return false
	}
	to, ok := stageOrder[next]
	if !ok {
		return false
	}
	return to == cur+1
}

// DigestRequest is the input to one user-triggered action.
type DigestRequest struct {
	Documents []Document
	Date      time.Time
	Template  PromptTemplate
	Model     ModelDescriptor
	APIKey    string
}

// DigestRun carries every value produced by one action. Runs are never shared.
type DigestRun struct {
	Stage    Stage              `json:"stage"`
	Corpus   Corpus             `json:"-"`
	Results  []ExtractionResult `json:"documents"`
	Failures []FailureReport    `json:"failures"`
	Prompt   AssembledPrompt    `json:"-"`
	Outcome  *GenerationOutcome `json:"outcome,omitempty"`
}

func NewDigestRun() *DigestRun {
	return &DigestRun{
		Stage:    StageIdle,
		Results:  []ExtractionResult{},
		Failures: []FailureReport{},
	}
}

func (r *DigestRun) Advance(next Stage) error {
	if !r.Stage.CanAdvanceTo(next) {
		return fmt.Errorf("invalid stage transition %s -> %s", r.Stage, next)
	}
	r.Stage = next
	return nil
}
