package models

import (
	"encoding/json"
	"fmt"
	"os"
)

func LoadPipelineConfig(path string) (*PipelineConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pipeline config %s: %w", path, err)
	}

	return ParsePipelineConfig(raw)
}

func ParsePipelineConfig(raw []byte) (*PipelineConfig, error) {
	cfg := &PipelineConfig{}

	if err := json.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("decode pipeline config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pipeline config: %w", err)
	}

	cfg.Raw = raw

	return cfg, nil
}
