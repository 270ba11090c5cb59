package telemetry

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alecthomas/assert/v2"
)

func TestFromContextWithoutCollector(t *testing.T) {
	collector := FromContext(context.Background())
	_, ok := collector.(noOpCollector)
	assert.True(t, ok)

	timer := StartTimer(context.Background(), "load")
	timer.Child("parse").End()
	timer.End()

	var buf bytes.Buffer
	collector.Report(&buf, nil)
	assert.Equal(t, 0, buf.Len())
}

func TestFromContextRoundTrip(t *testing.T) {
	collector := NewTimingCollector()
	ctx := WithCollector(context.Background(), collector)
	assert.Equal[Collector](t, collector, FromContext(ctx))
}

func TestTimingReport(t *testing.T) {
	collector := NewTimingCollector()

	root := collector.Start("check main.beancount")
	load := root.Child("load")
	time.Sleep(2 * time.Millisecond)
	load.End()
	book := root.Child("book")
	book.End()
	root.End()

	var buf bytes.Buffer
	collector.Report(&buf, nil)
	report := buf.String()

	assert.Contains(t, report, "check main.beancount")
	assert.Contains(t, report, "├─ load")
	assert.Contains(t, report, "└─ book")
	assert.Contains(t, report, "ms")
}

func TestTimingReportNesting(t *testing.T) {
	collector := NewTimingCollector()

	root := collector.Start("load")
	parse := root.Child("parse")
	include := parse.Child("parse include.beancount")
	include.End()
	parse.End()
	root.End()

	var buf bytes.Buffer
	collector.Report(&buf, nil)

	var nested string
	for _, line := range strings.Split(buf.String(), "\n") {
		if strings.Contains(line, "include.beancount") {
			nested = line
		}
	}
	assert.NotEqual(t, "", nested)
	assert.True(t, strings.Contains(nested, "   ") || strings.Contains(nested, "│  "))
}

func TestTimingReportEmpty(t *testing.T) {
	var buf bytes.Buffer
	NewTimingCollector().Report(&buf, nil)
	assert.Equal(t, 0, buf.Len())
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "1ms", formatDuration(time.Millisecond))
	assert.Equal(t, "999ms", formatDuration(999*time.Millisecond))
	assert.Equal(t, "1.00s", formatDuration(time.Second))
	assert.Equal(t, "1.50s", formatDuration(1500*time.Millisecond))
}
