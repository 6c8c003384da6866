package diag

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestCollector_RecordsAndLogs(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	c := NewCollector(StageConstants, zap.New(core))

	c.Warn("complex_value", "button", "app_colors.dart", "skipped %s", "AppColors.shadow")
	c.Error("read_failed", "card", "", errors.New("boom"))
	c.Info("resolved", "", "", "ok")

	ds := c.Diagnostics()
	require.Len(t, ds, 3)
	assert.Equal(t, StageConstants, ds[0].Stage)
	assert.Equal(t, SeverityWarning, ds[0].Severity)
	assert.Equal(t, "skipped AppColors.shadow", ds[0].Message)
	assert.Equal(t, 1, Count(ds, SeverityError))

	require.Equal(t, 3, logs.Len())
	first := logs.All()[0]
	assert.Equal(t, zapcore.WarnLevel, first.Level)
	assert.Equal(t, "button", first.ContextMap()["component"])
	assert.Equal(t, string(StageConstants), first.ContextMap()["stage"])
}

func TestCollector_NilLogger(t *testing.T) {
	c := NewCollector(StageDiscover, nil)
	c.Warn("missing", "", "", "nothing here")
	assert.Len(t, c.Diagnostics(), 1)
}

func TestDiagnostic_String(t *testing.T) {
	d := Diagnostic{Stage: StageMaterialize, Severity: SeverityError, Code: "io", Component: "chip", Path: "chip.dart", Message: "denied"}
	assert.Equal(t, "[materialize/error] io (chip:chip.dart): denied", d.String())

	d = Diagnostic{Stage: StageDiscover, Severity: SeverityWarning, Code: "missing", Message: "no dir"}
	assert.Equal(t, "[discover/warning] missing: no dir", d.String())
}
