package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"brickgen/internal/diag"

	"github.com/google/uuid"
)

const (
	StatusOK      = "ok"
	StatusError   = "error"
	StatusSkipped = "skipped"
)

type StageMetric struct {
	Name       string             `json:"name"`
	Status     string             `json:"status"`
	StartedAt  string             `json:"started_at"`
	FinishedAt string             `json:"finished_at"`
	DurationMS int64              `json:"duration_ms"`
	Counters   map[string]float64 `json:"counters,omitempty"`
	Notes      []string           `json:"notes,omitempty"`
	Error      string             `json:"error,omitempty"`
}

// ComponentSummary is the per-component outcome of a run.
type ComponentSummary struct {
	Name           string   `json:"name"`
	Created        bool     `json:"created"`
	Files          int      `json:"files"`
	FilesRewritten int      `json:"files_rewritten"`
	Substitutions  int      `json:"substitutions"`
	Dependencies   []string `json:"dependencies,omitempty"`
	Dependents     []string `json:"dependents,omitempty"`
	ThirdParty     []string `json:"third_party,omitempty"`
	Failed         bool     `json:"failed,omitempty"`
}

type Summary struct {
	StageCount            int            `json:"stage_count"`
	FailedStages          int            `json:"failed_stages"`
	ComponentCount        int            `json:"component_count"`
	ArtifactsCreated      int            `json:"artifacts_created"`
	FailedComponents      int            `json:"failed_components"`
	DiagnosticsBySeverity map[string]int `json:"diagnostics_by_severity"`
}

// RunReport records one pipeline run over a repository.
type RunReport struct {
	Version     string             `json:"version"`
	RunID       string             `json:"run_id"`
	Repo        string             `json:"repo"`
	StartedAt   string             `json:"started_at"`
	GeneratedAt string             `json:"generated_at"`
	Stages      []StageMetric      `json:"stages"`
	Components  []ComponentSummary `json:"components"`
	Diagnostics []diag.Diagnostic  `json:"diagnostics,omitempty"`
	Summary     Summary            `json:"summary"`
}

type StageHandle struct {
	name    string
	started time.Time
}

func NewRunReport(repo string) *RunReport {
	now := time.Now().UTC().Format(time.RFC3339)
	return &RunReport{
		Version:     "v1",
		RunID:       uuid.NewString(),
		Repo:        repo,
		StartedAt:   now,
		GeneratedAt: now,
		Stages:      []StageMetric{},
		Components:  []ComponentSummary{},
	}
}

func (r *RunReport) BeginStage(stage diag.Stage) StageHandle {
	return StageHandle{name: string(stage), started: time.Now().UTC()}
}

func (r *RunReport) EndStage(h StageHandle, status string, counters map[string]float64, notes []string, err error) {
	if r == nil || strings.TrimSpace(h.name) == "" {
		return
	}
	if strings.TrimSpace(status) == "" {
		status = StatusOK
	}
	finished := time.Now().UTC()
	m := StageMetric{
		Name:       h.name,
		Status:     status,
		StartedAt:  h.started.Format(time.RFC3339Nano),
		FinishedAt: finished.Format(time.RFC3339Nano),
		DurationMS: finished.Sub(h.started).Milliseconds(),
		Counters:   cleanCounters(counters),
		Notes:      cleanNotes(notes),
	}
	if err != nil {
		m.Error = err.Error()
		if status == StatusOK {
			m.Status = StatusError
		}
	}
	r.Stages = append(r.Stages, m)
}

func (r *RunReport) AddDiagnostics(ds ...diag.Diagnostic) {
	if r == nil {
		return
	}
	r.Diagnostics = append(r.Diagnostics, ds...)
}

func (r *RunReport) AddComponent(c ComponentSummary) {
	if r == nil || strings.TrimSpace(c.Name) == "" {
		return
	}
	r.Components = append(r.Components, c)
}

// Finalize orders diagnostics by severity and recomputes the summary.
func (r *RunReport) Finalize() {
	if r == nil {
		return
	}
	r.GeneratedAt = time.Now().UTC().Format(time.RFC3339)

	sort.SliceStable(r.Diagnostics, func(i, j int) bool {
		pi := severityPriority(r.Diagnostics[i].Severity)
		pj := severityPriority(r.Diagnostics[j].Severity)
		if pi == pj {
			return r.Diagnostics[i].Stage < r.Diagnostics[j].Stage
		}
		return pi > pj
	})
	bySeverity := map[string]int{
		string(diag.SeverityError):   0,
		string(diag.SeverityWarning): 0,
		string(diag.SeverityInfo):    0,
	}
	for _, d := range r.Diagnostics {
		bySeverity[string(d.Severity)]++
	}

	failedStages := 0
	for _, st := range r.Stages {
		if st.Status == StatusError {
			failedStages++
		}
	}
	created, failed := 0, 0
	for _, c := range r.Components {
		if c.Created {
			created++
		}
		if c.Failed {
			failed++
		}
	}

	r.Summary = Summary{
		StageCount:            len(r.Stages),
		FailedStages:          failedStages,
		ComponentCount:        len(r.Components),
		ArtifactsCreated:      created,
		FailedComponents:      failed,
		DiagnosticsBySeverity: bySeverity,
	}
}

func (r *RunReport) Save(path string) error {
	if r == nil {
		return nil
	}
	r.Finalize()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0644)
}

func cleanCounters(raw map[string]float64) map[string]float64 {
	if len(raw) == 0 {
		return nil
	}
	out := make(map[string]float64, len(raw))
	for k, v := range raw {
		key := strings.TrimSpace(k)
		if key == "" {
			continue
		}
		out[key] = v
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func cleanNotes(raw []string) []string {
	var out []string
	for _, n := range raw {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, n)
		}
	}
	return out
}

func severityPriority(s diag.Severity) int {
	switch s {
	case diag.SeverityError:
		return 3
	case diag.SeverityWarning:
		return 2
	default:
		return 1
	}
}
