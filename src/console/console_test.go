package console

import (
	"bytes"
	"strings"
	"testing"

	"github.com/SOLUCIONESSYCOM/glassflow_demo/src/generator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	DisableColor()
}

func newTestConsole(input string) (*Console, *bytes.Buffer) {
	out := &bytes.Buffer{}
	return New(out, strings.NewReader(input)), out
}

func TestLog(t *testing.T) {
	c, out := newTestConsole("")

	require.NoError(t, c.Log(Line{
		Message:   "Topic users",
		Status:    "Created",
		Success:   true,
		Component: ComponentKafka,
	}))

	s := out.String()
	assert.Contains(t, s, "✔")
	assert.Contains(t, s, "[Kafka]")
	assert.Contains(t, s, "Topic users")
	assert.Contains(t, s, "Created")
}

func TestLog_Icons(t *testing.T) {
	c, out := newTestConsole("")

	require.NoError(t, c.Log(Line{Message: "m", Failure: true, Component: ComponentGlassFlow}))
	require.NoError(t, c.Log(Line{Message: "m", Warning: true, Component: ComponentClickhouse}))

	assert.Contains(t, out.String(), "✗")
	assert.Contains(t, out.String(), "⚠")
	assert.Contains(t, out.String(), "[Clickhouse]")
}

func TestLog_RequiresExactlyOneKind(t *testing.T) {
	c, out := newTestConsole("")

	assert.ErrorIs(t, c.Log(Line{Message: "m"}), ErrNoStatusKind)
	assert.ErrorIs(t, c.Log(Line{Message: "m", Success: true, Failure: true}), ErrMultipleStatusKind)
	assert.ErrorIs(t, c.Log(Line{Message: "m", Success: true, Warning: true}), ErrMultipleStatusKind)
	assert.Empty(t, out.String())
}

func TestPrintGenStats_SingleTopicWithDuplication(t *testing.T) {
	c, out := newTestConsole("")

	c.PrintGenStats("Generation Stats", TopicStats{Topic: "users", Stats: &generator.Stats{
		NumRecords:       100,
		TotalGenerated:   90,
		TotalDuplicates:  10,
		DuplicationRatio: 0.1,
		TimeTakenMs:      1234,
		Duplication:      true,
	}})

	s := out.String()
	for _, want := range []string{"Total Events", "Total Duplicates", "Total Unique Events",
		"Duplication Rate", "Time taken", "10.0%", "1234 ms", "90"} {
		assert.Contains(t, s, want)
	}
	assert.NotContains(t, s, "Topic")
}

func TestPrintGenStats_MultiTopic(t *testing.T) {
	c, out := newTestConsole("")

	c.PrintGenStats("Generation Stats",
		TopicStats{Topic: "users", Stats: &generator.Stats{NumRecords: 5, TotalGenerated: 5, TimeTakenMs: 7}},
		TopicStats{Topic: "orders", Stats: &generator.Stats{NumRecords: 8, TotalGenerated: 8, TimeTakenMs: 9}},
	)

	s := out.String()
	assert.Contains(t, s, "Topic")
	assert.Contains(t, s, "users")
	assert.Contains(t, s, "orders")
	assert.NotContains(t, s, "Duplication Rate")
}

func TestFormatPercent(t *testing.T) {
	assert.Equal(t, "10.0%", FormatPercent(0.1))
	assert.Equal(t, "0.0%", FormatPercent(0))
	assert.Equal(t, "33.3%", FormatPercent(1.0/3))
}

func TestPrintRecords(t *testing.T) {
	c, out := newTestConsole("")

	c.PrintRecords("ClickHouse Records", []string{"event_id", "name"}, [][]string{{"e1", "Ana"}, {"e2", "Luis"}})

	s := out.String()
	assert.Contains(t, s, "ClickHouse Records")
	assert.Contains(t, strings.ToLower(s), "event_id")
	assert.Contains(t, s, "Luis")
}

func TestAskYesNo(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		defaultYes bool
		want       bool
	}{
		{name: "empty uses default yes", input: "\n", defaultYes: true, want: true},
		{name: "empty uses default no", input: "\n", defaultYes: false, want: false},
		{name: "yes", input: "yes\n", want: true},
		{name: "n", input: "N\n", defaultYes: true, want: false},
		{name: "retry after garbage", input: "maybe\ny\n", want: true},
		{name: "eof uses default", input: "", defaultYes: true, want: true},
		{name: "answer without newline", input: "n", defaultYes: true, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestConsole(tt.input)
			got, err := c.AskYesNo("Delete?", tt.defaultYes)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWaitForEnter(t *testing.T) {
	c, out := newTestConsole("\n")
	require.NoError(t, c.WaitForEnter("press enter"))
	assert.Contains(t, out.String(), "press enter")
}
