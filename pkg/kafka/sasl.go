package kafka

import (
	"fmt"
	"slices"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

var (
	supportedMechanisms = []string{"PLAIN", "SCRAM-SHA-256", "SCRAM-SHA-512"}
	supportedProtocols  = []string{"SASL_SSL", "SASL_PLAINTEXT"}
)

// SASLConfig holds optional SASL credentials. SASL is enabled when a username is set.
type SASLConfig struct {
	Username         string `env:"SASL_USERNAME"`
	Password         string `env:"SASL_PASSWORD"`
	Mechanism        string `env:"SASL_MECHANISM"    envDefault:"SCRAM-SHA-512"`
	SecurityProtocol string `env:"SECURITY_PROTOCOL" envDefault:"SASL_SSL"`
}

func (s SASLConfig) Enabled() bool {
	return s.Username != ""
}

func (s SASLConfig) Validate() error {
	if !s.Enabled() {
		return nil
	}
	if s.Password == "" {
		return fmt.Errorf("sasl password must be set for user %q", s.Username)
	}
	if !slices.Contains(supportedMechanisms, s.Mechanism) {
		return fmt.Errorf("unsupported sasl mechanism %q, want one of %v", s.Mechanism, supportedMechanisms)
	}
	if !slices.Contains(supportedProtocols, s.SecurityProtocol) {
		return fmt.Errorf("unsupported security protocol %q, want one of %v", s.SecurityProtocol, supportedProtocols)
	}
	return nil
}

// ApplyToConfigMap sets the SASL properties on cfg. It does nothing when SASL is disabled.
func (s SASLConfig) ApplyToConfigMap(cfg *kafka.ConfigMap) {
	if !s.Enabled() {
		return
	}
	_ = cfg.SetKey("security.protocol", s.SecurityProtocol)
	_ = cfg.SetKey("sasl.mechanisms", s.Mechanism)
	_ = cfg.SetKey("sasl.username", s.Username)
	_ = cfg.SetKey("sasl.password", s.Password)
}
