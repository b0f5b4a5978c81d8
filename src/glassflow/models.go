package glassflow

import (
	"encoding/json"
	"slices"
)

const (
	StatusCreated     = "Created"
	StatusRunning     = "Running"
	StatusResuming    = "Resuming"
	StatusTerminating = "Terminating"
	StatusFailed      = "Failed"
	StatusStopping    = "Stopping"
	StatusStopped     = "Stopped"
)

// PipelineStatus acepta tanto "status": "Running" como
// "status": {"overall_status": "Running"} según la versión de la API.
type PipelineStatus string

func (s *PipelineStatus) UnmarshalJSON(data []byte) error {
	var plain string
	if err := json.Unmarshal(data, &plain); err == nil {
		*s = PipelineStatus(plain)
		return nil
	}

	var nested struct {
		OverallStatus string `json:"overall_status"`
	}
	if err := json.Unmarshal(data, &nested); err != nil {
		return err
	}
	*s = PipelineStatus(nested.OverallStatus)
	return nil
}

type PipelineSummary struct {
	ID        string         `json:"pipeline_id"`
	Name      string         `json:"name"`
	Status    PipelineStatus `json:"status"`
	CreatedAt string         `json:"created_at,omitempty"`
}

// Active indica si el pipeline ocupa el slot de ejecución.
func (p PipelineSummary) Active() bool {
	return !IsTerminal(string(p.Status))
}

func IsTerminal(status string) bool {
	return slices.Contains([]string{StatusStopped, StatusFailed}, status)
}
