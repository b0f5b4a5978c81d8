package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/SOLUCIONESSYCOM/glassflow_demo/src/app"
	"github.com/stretchr/testify/assert"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		want    int
		wantOut string
	}{
		{name: "ok", err: nil, want: 0},
		{name: "declined", err: app.ErrDeclined, want: 0},
		{name: "canceled", err: fmt.Errorf("wait: %w", context.Canceled), want: 130, wantOut: "interrupted"},
		{name: "verification", err: fmt.Errorf("%w: expected 1 records, got 0", app.ErrVerificationFailed), want: 1},
		{name: "glassflow down", err: app.ErrGlassFlowDown, want: 1},
		{name: "other", err: errors.New("boom"), want: 1, wantOut: "error: boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stderr := &bytes.Buffer{}
			assert.Equal(t, tt.want, exitCode(tt.err, stderr))
			if tt.wantOut != "" {
				assert.Contains(t, stderr.String(), tt.wantOut)
			}
		})
	}
}

func TestExecute_UsageAndUnknownCommand(t *testing.T) {
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}

	assert.Equal(t, 2, Execute(nil, stdout, stderr))
	assert.Contains(t, stderr.String(), "Usage: glassflow-demo")

	assert.Equal(t, 0, Execute([]string{"help"}, stdout, stderr))
	assert.Contains(t, stdout.String(), "walkthrough")

	stderr.Reset()
	assert.Equal(t, 2, Execute([]string{"nope"}, stdout, stderr))
	assert.Contains(t, stderr.String(), `unknown command "nope"`)
}
