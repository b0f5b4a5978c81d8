package kafka

import (
	"errors"
	"strings"

	"github.com/SOLUCIONESSYCOM/glassflow_demo/src/models"
	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

type serverConfigs struct {
	bootstrapServers []string
	clientId         *string
}

func NewServerConfigs(bootstrapServers []string, clientId *string) (*serverConfigs, error) {
	if len(bootstrapServers) == 0 {
		return nil, errors.New("bootstrapServers is required")
	}

	return &serverConfigs{
		bootstrapServers: bootstrapServers,
		clientId:         clientId,
	}, nil
}

func (s *serverConfigs) build(configMap *kafka.ConfigMap) {
	configMap.SetKey("bootstrap.servers", strings.Join(s.bootstrapServers, ","))

	if s.clientId != nil && *s.clientId != "" {
		configMap.SetKey("client.id", *s.clientId)
	}
}

type securityConfig struct {
	securityProtocol string

	sslCAPem string

	saslMechanism string
	saslUsername  string
	saslPassword  string
}

func NewSecurityConfig() *securityConfig {
	return &securityConfig{}
}

// SecurityFromConnectionParams arma la configuración de seguridad a partir
// de los connection_params del pipeline.
func SecurityFromConnectionParams(params models.ConnectionParams) *securityConfig {
	c := NewSecurityConfig().WithProtocol(params.Protocol)

	if params.UsesSASL() {
		c.WithSASL(params.Mechanism, params.Username, params.Password)
	}

	return c.WithCAPem(params.RootCA)
}

func (c *securityConfig) WithProtocol(protocol string) *securityConfig {
	c.securityProtocol = strings.ToUpper(strings.TrimSpace(protocol))
	return c
}

func (c *securityConfig) WithSASL(
	mechanism,
	username,
	password string) *securityConfig {

	if mechanism == "" || username == "" || password == "" {
		return c
	}

	c.saslMechanism = mechanism
	c.saslUsername = username
	c.saslPassword = password

	return c
}

func (c *securityConfig) WithCAPem(pem string) *securityConfig {
	c.sslCAPem = strings.TrimSpace(pem)
	return c
}

func (c *securityConfig) Build(configMap *kafka.ConfigMap) {

	if c.securityProtocol != "" {
		configMap.SetKey("security.protocol", c.securityProtocol)
	}

	if c.saslMechanism != "" {
		configMap.SetKey("sasl.mechanisms", c.saslMechanism)
		configMap.SetKey("sasl.username", c.saslUsername)
		configMap.SetKey("sasl.password", c.saslPassword)
	}

	if c.sslCAPem != "" {
		configMap.SetKey("ssl.ca.pem", c.sslCAPem)
	}
}
