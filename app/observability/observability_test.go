package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_JSONLogsCarryCorrelationID(t *testing.T) {
	var buf bytes.Buffer
	obs := initWithWriter(Config{ServiceName: "clan-sync-bot", Environment: "production", LogLevel: "debug"}, &buf)

	ctx := WithCorrelationID(context.Background(), "corr-1")
	obs.Logger.DebugContext(ctx, "hello")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "hello", line["msg"])
	assert.Equal(t, "corr-1", line["correlation_id"])
	assert.Equal(t, "clan-sync-bot", line["service"])
}

func TestInit_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	obs := initWithWriter(Config{Environment: "production", LogLevel: "warn"}, &buf)

	obs.Logger.Info("dropped")
	assert.Zero(t, buf.Len())

	obs.Logger.Warn("kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestCorrelationID_Empty(t *testing.T) {
	ctx := WithCorrelationID(context.Background(), "")
	assert.Equal(t, "", CorrelationID(ctx))
}

func TestMetrics_Record(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	ctx := context.Background()

	m.RecordOperationAttempt(ctx, "ReconcileGuild", "RolesyncService")
	m.RecordOperationAttempt(ctx, "ReconcileGuild", "RolesyncService")
	m.RecordOperationFailure(ctx, "ReconcileGuild", "RolesyncService")
	m.RecordOperationDuration(ctx, "ReconcileGuild", "RolesyncService", time.Second)
	m.RecordMemberEdit(ctx, "applied")
	m.RecordGateDrop(ctx, "WAR")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.OperationAttempts.WithLabelValues("RolesyncService", "ReconcileGuild")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OperationFailures.WithLabelValues("RolesyncService", "ReconcileGuild")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MemberEdits.WithLabelValues("applied")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GateDrops.WithLabelValues("WAR")))
}
