// Package diag carries the non-fatal diagnostics every pipeline stage
// accumulates instead of aborting sibling work.
package diag

import (
	"fmt"

	"go.uber.org/zap"
)

type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

type Stage string

const (
	StageDiscover     Stage = "discover"
	StageMaterialize  Stage = "materialize"
	StageConstants    Stage = "resolve_constants"
	StageDependencies Stage = "resolve_dependencies"
	StageReport       Stage = "report"
)

// Diagnostic is one recoverable problem observed while processing a repository.
type Diagnostic struct {
	Stage     Stage    `json:"stage"`
	Severity  Severity `json:"severity"`
	Code      string   `json:"code"`
	Component string   `json:"component,omitempty"`
	Path      string   `json:"path,omitempty"`
	Message   string   `json:"message"`
}

func (d Diagnostic) String() string {
	where := d.Component
	if d.Path != "" {
		if where != "" {
			where += ":"
		}
		where += d.Path
	}
	if where == "" {
		return fmt.Sprintf("[%s/%s] %s: %s", d.Stage, d.Severity, d.Code, d.Message)
	}
	return fmt.Sprintf("[%s/%s] %s (%s): %s", d.Stage, d.Severity, d.Code, where, d.Message)
}

// Collector records diagnostics for one stage and mirrors each of them to
// the injected logger.
type Collector struct {
	stage  Stage
	logger *zap.Logger
	items  []Diagnostic
}

func NewCollector(stage Stage, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Collector{stage: stage, logger: logger.With(zap.String("stage", string(stage)))}
}

func (c *Collector) Info(code, component, path, format string, args ...any) {
	c.add(SeverityInfo, code, component, path, fmt.Sprintf(format, args...))
}

func (c *Collector) Warn(code, component, path, format string, args ...any) {
	c.add(SeverityWarning, code, component, path, fmt.Sprintf(format, args...))
}

func (c *Collector) Error(code, component, path string, err error) {
	c.add(SeverityError, code, component, path, err.Error())
}

// Merge appends diagnostics produced elsewhere without logging them again.
func (c *Collector) Merge(ds []Diagnostic) {
	c.items = append(c.items, ds...)
}

func (c *Collector) Diagnostics() []Diagnostic {
	return c.items
}

func (c *Collector) add(sev Severity, code, component, path, msg string) {
	d := Diagnostic{
		Stage:     c.stage,
		Severity:  sev,
		Code:      code,
		Component: component,
		Path:      path,
		Message:   msg,
	}
	c.items = append(c.items, d)

	fields := []zap.Field{zap.String("code", code)}
	if component != "" {
		fields = append(fields, zap.String("component", component))
	}
	if path != "" {
		fields = append(fields, zap.String("path", path))
	}
	switch sev {
	case SeverityError:
		c.logger.Error(msg, fields...)
	case SeverityWarning:
		c.logger.Warn(msg, fields...)
	default:
		c.logger.Debug(msg, fields...)
	}
}

// Count returns how many diagnostics carry the given severity.
func Count(ds []Diagnostic, sev Severity) int {
	n := 0
	for _, d := range ds {
		if d.Severity == sev {
			n++
		}
	}
	return n
}
