package logbook

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opcreach/pkg/model"
)

func fixedClock() func() time.Time {
	at := time.Date(2026, 8, 26, 14, 30, 0, 0, time.UTC)
	return func() time.Time { return at }
}

func newBufferRecorder() (*Recorder, *bytes.Buffer) {
	var buf bytes.Buffer
	r := New(&buf)
	r.SetClock(fixedClock())
	return r, &buf
}

func TestLinesAreTimestampPrefixed(t *testing.T) {
	r, buf := newBufferRecorder()

	r.Headline(model.StageQueryEndpoints, "querying endpoints at %s", "opc.tcp://10.0.0.5:4840")

	line := strings.TrimRight(buf.String(), "\n")
	assert.Equal(t, "2026-08-26 14:30:00.000 | [query-endpoints] querying endpoints at opc.tcp://10.0.0.5:4840", line)
}

func TestHeadlineForwardedDetailNot(t *testing.T) {
	r, _ := newBufferRecorder()
	var live []string
	r.OnHeadline(func(text string) { live = append(live, text) })

	r.Headline(model.StageBaseline, "captured %d sockets", 12)
	r.Detail(model.StageBaseline, "full table follows")
	r.Warn(model.StageBaseline, "capture degraded")

	require.Len(t, live, 2)
	assert.Contains(t, live[0], "captured 12 sockets")
	assert.Contains(t, live[1], "WARN")
}

func TestSectionMarkersMatch(t *testing.T) {
	r, buf := newBufferRecorder()

	r.Section("Discovered Endpoints", func() {
		r.Detail(model.StageQueryEndpoints, "none")
	})

	out := buf.String()
	assert.Contains(t, out, "===== Discovered Endpoints =====")
	assert.Contains(t, out, "===== End Discovered Endpoints =====")
	assert.Less(t,
		strings.Index(out, "===== Discovered Endpoints ====="),
		strings.Index(out, "===== End Discovered Endpoints ====="))
}

func TestTablePadsAndTruncates(t *testing.T) {
	r, buf := newBufferRecorder()

	r.Table(
		[]string{"Address", "Port"},
		[]int{10, 6},
		[][]string{
			{"0.0.0.0", "135"},
			{"longer-than-column", "52000"},
		},
	)

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasSuffix(lines[0], "   Address    Port"))
	assert.True(t, strings.HasSuffix(lines[1], "   0.0.0.0     135"))
	assert.True(t, strings.HasSuffix(lines[2], "longer-t..   52000"))
}

func TestSummaryListsEveryNote(t *testing.T) {
	r, buf := newBufferRecorder()

	r.Warn(model.StageBaseline, "baseline capture failed, continuing with empty list")
	r.Error(model.StageSubscribe, "subscription rejected: BadNodeIdUnknown")
	r.Summary()

	out := buf.String()
	assert.Contains(t, out, "===== Run Summary =====")
	assert.Contains(t, out, "warnings: 1  errors: 1")
	assert.Contains(t, out, "WARN  [baseline-capture]  baseline capture failed, continuing with empty list")
	assert.Contains(t, out, "ERROR  [subscribe]  subscription rejected: BadNodeIdUnknown")
	assert.Contains(t, out, "===== End Run Summary =====")
}

func TestWarningsAccessor(t *testing.T) {
	r, _ := newBufferRecorder()

	r.Warn(model.StageBaseline, "first")
	r.Error(model.StageSubscribe, "not a warning")
	r.Warn(model.StageMonitor, "second")

	assert.Equal(t, []string{"first", "second"}, r.Warnings())
}

func TestCloseWithoutFileIsNoop(t *testing.T) {
	r, _ := newBufferRecorder()
	require.NoError(t, r.Close())
	require.NoError(t, r.Close())
}
