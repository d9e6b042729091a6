package sinks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/JakeFAU/primerblast-validator/internal/progress"
	"github.com/JakeFAU/primerblast-validator/internal/publisher/memory"
)

func runEvents(kind progress.Kind) (uuid.UUID, []progress.Event) {
	id := uuid.New()
	runID := progress.UUIDToBytes(id)
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return id, []progress.Event{
		{RunID: runID, TS: ts, Stage: progress.StageRunStart, Kind: kind, Total: 3},
		{RunID: runID, TS: ts, Stage: progress.StageJobDone, Kind: kind, PrimerID: "A", Status: "pass", Done: 1, Total: 3},
		{RunID: runID, TS: ts, Stage: progress.StageJobDone, Kind: kind, PrimerID: "B", Status: "fail", Done: 2, Total: 3},
		{RunID: runID, TS: ts, Stage: progress.StageCheckpoint, Kind: kind, Done: 2, Total: 3, Note: "out.json"},
		{RunID: runID, TS: ts, Stage: progress.StageJobDone, Kind: kind, PrimerID: "C", Status: "pass", Done: 3, Total: 3},
		{RunID: runID, TS: ts.Add(time.Minute), Stage: progress.StageRunDone, Kind: kind, Done: 3, Total: 3},
	}
}

func TestTallySinkSnapshot(t *testing.T) {
	t.Parallel()

	sink := NewTallySink()
	id, batch := runEvents(progress.KindValidate)
	require.NoError(t, sink.Consume(context.Background(), batch))

	snaps := sink.Snapshot()
	require.Len(t, snaps, 1)
	snap := snaps[0]
	assert.Equal(t, id.String(), snap.RunID)
	assert.Equal(t, "validate", snap.Kind)
	assert.Equal(t, 3, snap.Done)
	assert.Equal(t, 3, snap.Total)
	assert.Equal(t, map[string]int{"pass": 2, "fail": 1}, snap.ByStatus)
	assert.Equal(t, "out.json", snap.LastCheckpoint)
	require.NotNil(t, snap.FinishedAt)

	// Snapshots are copies.
	snap.ByStatus["pass"] = 99
	assert.Equal(t, 2, sink.Snapshot()[0].ByStatus["pass"])
}

func TestTallySinkKeepsRunOrder(t *testing.T) {
	t.Parallel()

	sink := NewTallySink()
	_, first := runEvents(progress.KindSubmit)
	_, second := runEvents(progress.KindValidate)
	require.NoError(t, sink.Consume(context.Background(), first[:1]))
	require.NoError(t, sink.Consume(context.Background(), second[:1]))

	snaps := sink.Snapshot()
	require.Len(t, snaps, 2)
	assert.Equal(t, "submit", snaps[0].Kind)
	assert.Equal(t, "validate", snaps[1].Kind)
	assert.Nil(t, snaps[0].FinishedAt)
}

func TestPublisherSinkPublishesMilestones(t *testing.T) {
	t.Parallel()

	pub := memory.New()
	sink, err := NewPublisherSink(pub, "runs")
	require.NoError(t, err)

	id, batch := runEvents(progress.KindValidate)
	require.NoError(t, sink.Consume(context.Background(), batch))

	msgs := pub.Messages()
	require.Len(t, msgs, 3)
	stages := make([]string, 0, len(msgs))
	for _, msg := range msgs {
		assert.Equal(t, "runs", msg.Topic)
		notice, ok := msg.Payload.(RunNotice)
		require.True(t, ok)
		assert.Equal(t, id.String(), notice.RunID)
		stages = append(stages, notice.Stage)
	}
	assert.Equal(t, []string{"RUN_START", "CHECKPOINT", "RUN_DONE"}, stages)
}

func TestPublisherSinkJoinsErrors(t *testing.T) {
	t.Parallel()

	pub := memory.New()
	pub.FailWith(errors.New("unavailable"))
	sink, err := NewPublisherSink(pub, "runs")
	require.NoError(t, err)

	_, batch := runEvents(progress.KindSubmit)
	err = sink.Consume(context.Background(), batch)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish RUN_DONE notice")
}

func TestNewPublisherSinkValidates(t *testing.T) {
	t.Parallel()

	_, err := NewPublisherSink(nil, "runs")
	require.Error(t, err)
	_, err = NewPublisherSink(memory.New(), "")
	require.Error(t, err)
}

func TestLogSinkLevels(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	sink := NewLogSink(zap.New(core))
	_, batch := runEvents(progress.KindValidate)
	require.NoError(t, sink.Consume(context.Background(), batch))
	require.NoError(t, sink.Close(context.Background()))

	assert.Equal(t, 3, logs.FilterLevelExact(zapcore.DebugLevel).Len())
	info := logs.FilterLevelExact(zapcore.InfoLevel).All()
	require.Len(t, info, 3)
	assert.Equal(t, "CHECKPOINT", info[1].ContextMap()["stage"])
	assert.Equal(t, "out.json", info[1].ContextMap()["note"])
}
