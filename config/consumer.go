package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Consumer is the full configuration for cmd/consumer.
type Consumer struct {
	Postgres Postgres

	BlockchainUpdatesURL string `envconfig:"BLOCKCHAIN_UPDATES_URL" required:"true"`
	StartingHeight       uint32 `envconfig:"STARTING_HEIGHT" default:"0"`
	StartRollbackDepth   uint32 `envconfig:"START_ROLLBACK_DEPTH" default:"1"`

	BatchMaxSize     uint32 `envconfig:"BATCH_MAX_SIZE" default:"256"`
	BatchMaxDelaySec uint32 `envconfig:"BATCH_MAX_DELAY_SEC" default:"10"`

	MetricsPort uint16 `envconfig:"METRICS_PORT" default:"9090"`

	ArgumentEncodingRegime string `envconfig:"ARGUMENT_ENCODING_REGIME" default:"base58"`
	TimestampEncoding      string `envconfig:"TIMESTAMP_ENCODING" default:"unix_millis"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"terminal"`
}

// BatchMaxDelay is BatchMaxDelaySec as a time.Duration.
func (c Consumer) BatchMaxDelay() time.Duration {
	return time.Duration(c.BatchMaxDelaySec) * time.Second
}

// LoadConsumer reads the consumer configuration from the environment.
// starting_height is validated against i32 range the way the original
// envy-based loader did, because the upstream Subscribe RPC carries the
// height as a signed 32-bit field.
func LoadConsumer() (Consumer, error) {
	var c Consumer
	if err := envconfig.Process("", &c); err != nil {
		return Consumer{}, fmt.Errorf("configuration error: %w", err)
	}
	if c.StartingHeight > uint32(1<<31-1) {
		return Consumer{}, fmt.Errorf("configuration error: invalid STARTING_HEIGHT parameter: value is too big")
	}
	return c, nil
}
