package models

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

const (
	OrientationLeft  = "left"
	OrientationRight = "right"

	MechanismNoAuth = "NO_AUTH"
)

// PipelineConfig es la configuración del pipeline tal como la espera la API de GlassFlow.
// Raw conserva el JSON original para enviarlo sin pérdida de campos desconocidos.
type PipelineConfig struct {
	PipelineID string       `json:"pipeline_id"`
	Name       string       `json:"name,omitempty"`
	Source     SourceConfig `json:"source"`
	Join       JoinConfig   `json:"join,omitempty"`
	Sink       SinkConfig   `json:"sink"`

	Raw []byte `json:"-"`
}

type SourceConfig struct {
	Type             string           `json:"type"`
	Provider         string           `json:"provider,omitempty"`
	ConnectionParams ConnectionParams `json:"connection_params"`
	Topics           []TopicConfig    `json:"topics"`
}

type ConnectionParams struct {
	Brokers   []string `json:"brokers"`
	Protocol  string   `json:"protocol,omitempty"`
	Mechanism string   `json:"mechanism,omitempty"`
	Username  string   `json:"username,omitempty"`
	Password  string   `json:"password,omitempty"`
	SkipAuth  bool     `json:"skip_auth,omitempty"`
	RootCA    string   `json:"root_ca,omitempty"`
}

// UsesSASL indica si la conexión necesita credenciales SASL.
func (c ConnectionParams) UsesSASL() bool {
	if c.SkipAuth {
		return false
	}
	m := strings.ToUpper(strings.TrimSpace(c.Mechanism))
	return m != "" && m != MechanismNoAuth
}

type TopicConfig struct {
	Name                       string              `json:"name"`
	ID                         string              `json:"id,omitempty"`
	ConsumerGroupInitialOffset string              `json:"consumer_group_initial_offset,omitempty"`
	Replicas                   int                 `json:"replicas,omitempty"`
	Deduplication              DeduplicationConfig `json:"deduplication,omitempty"`
}

type DeduplicationConfig struct {
	Enabled     bool   `json:"enabled"`
	IDField     string `json:"id_field,omitempty"`
	IDFieldType string `json:"id_field_type,omitempty"`
	TimeWindow  string `json:"time_window,omitempty"`
}

type JoinConfig struct {
	Type    string       `json:"type,omitempty"`
	Enabled bool         `json:"enabled"`
	Sources []JoinSource `json:"sources,omitempty"`
}

type JoinSource struct {
	SourceID    string `json:"source_id"`
	JoinKey     string `json:"join_key"`
	TimeWindow  string `json:"time_window,omitempty"`
	Orientation string `json:"orientation"`
}

type SinkConfig struct {
	Type                        string         `json:"type"`
	Provider                    string         `json:"provider,omitempty"`
	Host                        string         `json:"host"`
	Port                        string         `json:"port,omitempty"`
	HttpPort                    string         `json:"http_port,omitempty"`
	Database                    string         `json:"database"`
	Username                    string         `json:"username"`
	Password                    string         `json:"password"`
	Table                       string         `json:"table"`
	Secure                      bool           `json:"secure"`
	MaxBatchSize                int            `json:"max_batch_size,omitempty"`
	MaxDelayTime                string         `json:"max_delay_time,omitempty"`
	SkipCertificateVerification bool           `json:"skip_certificate_verification,omitempty"`
	TableMapping                []TableMapping `json:"table_mapping,omitempty"`
}

type TableMapping struct {
	SourceID   string `json:"source_id"`
	FieldName  string `json:"field_name"`
	ColumnName string `json:"column_name"`
	ColumnType string `json:"column_type"`
}

// DecodedPassword devuelve el password del sink, que viene codificado en base64.
func (s SinkConfig) DecodedPassword() (string, error) {
	if s.Password == "" {
		return "", nil
	}
	b, err := base64.StdEncoding.DecodeString(s.Password)
	if err != nil {
		return "", fmt.Errorf("decode sink password: %w", err)
	}
	return string(b), nil
}

// JoinSide agrupa una fuente del join con el topic que la alimenta.
type JoinSide struct {
	Topic   TopicConfig
	JoinKey string
	Name    string
}

func (p *PipelineConfig) Validate() error {
	if strings.TrimSpace(p.PipelineID) == "" {
		return errors.New("pipeline_id is required")
	}
	if len(p.Source.Topics) == 0 {
		return errors.New("source.topics must contain at least one topic")
	}
	for i, t := range p.Source.Topics {
		if strings.TrimSpace(t.Name) == "" {
			return fmt.Errorf("source.topics[%d].name is required", i)
		}
		if t.Deduplication.Enabled && t.Deduplication.IDField == "" {
			return fmt.Errorf("source.topics[%d].deduplication.id_field is required when deduplication is enabled", i)
		}
	}
	if len(p.Source.ConnectionParams.Brokers) == 0 {
		return errors.New("source.connection_params.brokers must contain at least one broker")
	}
	if strings.TrimSpace(p.Sink.Table) == "" {
		return errors.New("sink.table is required")
	}
	if p.Join.Enabled {
		if _, _, err := p.JoinSides(); err != nil {
			return err
		}
	}
	return nil
}

func (p *PipelineConfig) TopicByName(name string) (TopicConfig, bool) {
	for _, t := range p.Source.Topics {
		if t.Name == name {
			return t, true
		}
	}
	return TopicConfig{}, false
}

// JoinSides resuelve las fuentes left y right del join contra los topics configurados.
func (p *PipelineConfig) JoinSides() (left JoinSide, right JoinSide, err error) {
	sides := make(map[string]JoinSide, 2)

	for _, source := range p.Join.Sources {
		topic, ok := p.TopicByName(source.SourceID)
		if !ok {
			return JoinSide{}, JoinSide{}, fmt.Errorf("source topic %s not found", source.SourceID)
		}

		orientation := strings.ToLower(strings.TrimSpace(source.Orientation))
		if orientation != OrientationLeft && orientation != OrientationRight {
			return JoinSide{}, JoinSide{}, fmt.Errorf("invalid join orientation %q for source %s", source.Orientation, source.SourceID)
		}
		if _, dup := sides[orientation]; dup {
			return JoinSide{}, JoinSide{}, fmt.Errorf("join has more than one %s source", orientation)
		}

		sides[orientation] = JoinSide{Topic: topic, JoinKey: source.JoinKey, Name: source.SourceID}
	}

	left, okLeft := sides[OrientationLeft]
	right, okRight := sides[OrientationRight]
	if !okLeft || !okRight {
		return JoinSide{}, JoinSide{}, errors.New("join requires one left and one right source")
	}

	return left, right, nil
}

