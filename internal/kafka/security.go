package kafka

import (
	"fmt"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/faunawatch/backend/internal/config"
)

// applySecurity layers SASL_SSL settings onto a librdkafka config map when
// the deployment talks to a secured broker. Plain listeners leave the map
// untouched.
func applySecurity(cm *kafka.ConfigMap, cfg *config.KafkaConfig) error {
	if !cfg.SecurityEnable {
		return nil
	}

	settings := map[string]kafka.ConfigValue{
		"security.protocol": "SASL_SSL",
		"sasl.mechanisms":   "PLAIN",
		"sasl.username":     cfg.SecurityUser,
		"sasl.password":     cfg.SecurityPass,
	}
	for key, value := range settings {
		if err := cm.SetKey(key, value); err != nil {
			return fmt.Errorf("failed to set %s: %w", key, err)
		}
	}

	return nil
}
