// Package transcribe runs the external speech pipeline over a project's
// media and turns its output into a transcript.
package transcribe

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/heimdex/heimdex-cut/internal/transcript"
)

var ErrFailed = errors.New("transcription failed")

// RunResult is the structured outcome of executing a pipeline subprocess.
type RunResult struct {
	ExitCode   int           `json:"exit_code"`
	OutputPath string        `json:"output_path,omitempty"`
	StderrTail string        `json:"stderr_tail,omitempty"`
	Duration   time.Duration `json:"duration"`
}

func (r RunResult) IsSuccess() bool { return r.ExitCode == 0 }

// PipelineOutput carries the metadata every speech output must have.
type PipelineOutput struct {
	SchemaVersion   string `json:"schema_version"`
	PipelineVersion string `json:"pipeline_version"`
	ModelVersion    string `json:"model_version"`
}

func (p PipelineOutput) RequiredFieldsPresent() bool {
	return p.SchemaVersion != "" && p.PipelineVersion != "" && p.ModelVersion != ""
}

func (p PipelineOutput) missing() []string {
	var m []string
	if p.SchemaVersion == "" {
		m = append(m, "schema_version")
	}
	if p.PipelineVersion == "" {
		m = append(m, "pipeline_version")
	}
	if p.ModelVersion == "" {
		m = append(m, "model_version")
	}
	return m
}

// SpeechOutput is the speech pipeline's result file. Segment ids are
// optional; missing ones are numbered from 1 in output order.
type SpeechOutput struct {
	PipelineOutput
	Language string          `json:"language"`
	Duration float64         `json:"duration"`
	Segments []SpeechSegment `json:"segments"`
}

type SpeechSegment struct {
	ID      int               `json:"id"`
	Speaker string            `json:"speaker"`
	Start   float64           `json:"start"`
	End     float64           `json:"end"`
	Text    string            `json:"text"`
	Words   []transcript.Word `json:"words"`
}

// Transcript converts the output, validating the result.
func (o *SpeechOutput) Transcript() (*transcript.Transcript, error) {
	if !o.RequiredFieldsPresent() {
		return nil, fmt.Errorf("speech output missing required fields: %s", strings.Join(o.missing(), ", "))
	}

	tr := &transcript.Transcript{
		Duration: o.Duration,
		Language: o.Language,
		Segments: make([]transcript.Segment, 0, len(o.Segments)),
	}
	for i, s := range o.Segments {
		id := s.ID
		if id == 0 {
			id = i + 1
		}
		text := s.Text
		if text == "" {
			parts := make([]string, len(s.Words))
			for j, w := range s.Words {
				parts[j] = w.Text
			}
			text = strings.Join(parts, " ")
		}
		tr.Segments = append(tr.Segments, transcript.Segment{
			ID:      id,
			Speaker: s.Speaker,
			Start:   s.Start,
			End:     s.End,
			Text:    strings.TrimSpace(text),
			Words:   s.Words,
		})
		if s.End > tr.Duration {
			tr.Duration = s.End
		}
	}

	if err := tr.Validate(); err != nil {
		return nil, fmt.Errorf("invalid speech output: %w", err)
	}
	return tr, nil
}
