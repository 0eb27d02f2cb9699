package config

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v4"
)

type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Redis    RedisConfig    `yaml:"redis"`
	ShipDesk ShipDeskConfig `yaml:"shipdesk"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DBName   string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

type KafkaConfig struct {
	Host                   string `yaml:"host"`
	Port                   int    `yaml:"port"`
	StatusChangedTopicName string `yaml:"status_changed_topic_name"`
}

type RedisConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type ShipDeskConfig struct {
	HTTPAddr           string `yaml:"http_addr"`
	KafkaConsumerGroup string `yaml:"kafka_consumer_group"`

	SessionTTLSeconds       int `yaml:"session_ttl_seconds"`
	DraftTTLSeconds         int `yaml:"draft_ttl_seconds"`
	TrackingCacheTTLSeconds int `yaml:"tracking_cache_ttl_seconds"`
	LoginRateLimitPerMinute int `yaml:"login_rate_limit_per_minute"`

	// Payment provider: "simulated" (default) or "gateway" with a base URL.
	PaymentProviderMode     string `yaml:"payment_provider_mode"`
	PaymentGatewayBaseURL   string `yaml:"payment_gateway_base_url"`
	PaymentGatewayAPIKey    string `yaml:"payment_gateway_api_key"`
	PaymentSimulatedDelayMs int    `yaml:"payment_simulated_delay_ms"`

	WorkerHTTPAddr            string `yaml:"worker_http_addr"`
	WorkerPollIntervalSeconds int    `yaml:"worker_poll_interval_seconds"`
	WorkerBatchSize           int    `yaml:"worker_batch_size"`
	WorkerConcurrency         int    `yaml:"worker_concurrency"`
	WorkerLeaseSeconds        int    `yaml:"worker_lease_seconds"`
	WorkerRateLimitPerMinute  int    `yaml:"worker_rate_limit_per_minute"`
	WorkerFirstCheckSeconds   int    `yaml:"worker_first_check_seconds"`

	// Progression schedule (optional). Defaults are prod-like minutes:
	// pending 30m, picked_up 60m, in_transit 60..180m, out_for_delivery 45m.
	WorkerPendingDelaySeconds        int `yaml:"worker_pending_delay_seconds"`
	WorkerPickedUpDelaySeconds       int `yaml:"worker_picked_up_delay_seconds"`
	WorkerInTransitMinDelaySeconds   int `yaml:"worker_in_transit_min_delay_seconds"`
	WorkerInTransitMaxDelaySeconds   int `yaml:"worker_in_transit_max_delay_seconds"`
	WorkerOutForDeliveryDelaySeconds int `yaml:"worker_out_for_delivery_delay_seconds"`
}

func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal YAML: %w", err)
	}

	return &config, nil
}
