/*
Copyright 2025 Tijori Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package config

import (
	"encoding/json"
	"errors"
	"log"
	"os"
	"strings"
	"sync/atomic"

	"github.com/kelseyhightower/envconfig"

	"github.com/sirupsen/logrus"
)

const (
	DEFAULT_PORT = "5001"

	// DEFAULT_ESCROW_THRESHOLD is ₹5,00,000 in paise. Transactions at
	// or above it must settle through escrow.
	DEFAULT_ESCROW_THRESHOLD = 50000000
)

var ConfigStore atomic.Value

type ServerConfig struct {
	SSL       bool   `json:"ssl" envconfig:"TIJORI_SERVER_SSL"`
	Secure    bool   `json:"secure" envconfig:"TIJORI_SERVER_SECURE"`
	SecretKey string `json:"secret_key" envconfig:"TIJORI_SERVER_SECRET_KEY"`
	Domain    string `json:"domain" envconfig:"TIJORI_SERVER_SSL_DOMAIN"`
	Email     string `json:"ssl_email" envconfig:"TIJORI_SERVER_SSL_EMAIL"`
	Port      string `json:"port" envconfig:"TIJORI_SERVER_PORT"`
}

type DataSourceConfig struct {
	Dns string `json:"dns" envconfig:"TIJORI_DATA_SOURCE_DNS"`
}

type RedisConfig struct {
	Dns string `json:"dns" envconfig:"TIJORI_REDIS_DNS"`
}

type QueueConfig struct {
	TransferQueue    string `json:"transfer_queue" envconfig:"TIJORI_QUEUE_TRANSFER"`
	WebhookQueue     string `json:"webhook_queue" envconfig:"TIJORI_QUEUE_WEBHOOK"`
	MaxRetryAttempts int    `json:"max_retry_attempts" envconfig:"TIJORI_QUEUE_MAX_RETRY_ATTEMPTS"`
	MonitoringPort   string `json:"monitoring_port" envconfig:"TIJORI_QUEUE_MONITORING_PORT"`
}

// SettlementConfig carries the money-movement policy: the escrow
// threshold and the tier fee schedule. Rates are decimal strings so
// the values survive JSON and env parsing without float drift.
type SettlementConfig struct {
	EscrowThreshold      int64             `json:"escrow_threshold" envconfig:"TIJORI_ESCROW_THRESHOLD"`
	GSTRate              string            `json:"gst_rate" envconfig:"TIJORI_GST_RATE"`
	DirectFeeRates       map[string]string `json:"direct_fee_rates"`
	EscrowFeeRates       map[string]string `json:"escrow_fee_rates"`
	ProcessingTimeoutSec int               `json:"processing_timeout_sec" envconfig:"TIJORI_PROCESSING_TIMEOUT_SEC"`
}

// ProvidersConfig points at the external collaborators: the wallet
// service for balances, the ledger for fund movement and the account
// service for subscription tiers.
type ProvidersConfig struct {
	WalletUrl string `json:"wallet_url" envconfig:"TIJORI_PROVIDERS_WALLET_URL"`
	LedgerUrl string `json:"ledger_url" envconfig:"TIJORI_PROVIDERS_LEDGER_URL"`
	TierUrl   string `json:"tier_url" envconfig:"TIJORI_PROVIDERS_TIER_URL"`
	AuthToken string `json:"auth_token" envconfig:"TIJORI_PROVIDERS_AUTH_TOKEN"`
}

type RateLimitConfig struct {
	RequestsPerSecond  *float64 `json:"requests_per_second" envconfig:"TIJORI_RATE_LIMIT_RPS"`
	Burst              *int     `json:"burst" envconfig:"TIJORI_RATE_LIMIT_BURST"`
	CleanupIntervalSec *int     `json:"cleanup_interval_sec" envconfig:"TIJORI_RATE_LIMIT_CLEANUP_INTERVAL_SEC"`
}

type SlackWebhook struct {
	WebhookUrl string `json:"webhook_url"`
}

type Notification struct {
	Slack   SlackWebhook `json:"slack"`
	Webhook struct {
		Url     string            `json:"url"`
		Headers map[string]string `json:"headers"`
	} `json:"webhook"`
}

type Configuration struct {
	ProjectName     string           `json:"project_name" envconfig:"TIJORI_PROJECT_NAME"`
	EnableTelemetry bool             `json:"enable_telemetry" envconfig:"TIJORI_ENABLE_TELEMETRY"`
	Server          ServerConfig     `json:"server"`
	DataSource      DataSourceConfig `json:"data_source"`
	Redis           RedisConfig      `json:"redis"`
	Queue           QueueConfig      `json:"queue"`
	Settlement      SettlementConfig `json:"settlement"`
	Providers       ProvidersConfig  `json:"providers"`
	Notification    Notification     `json:"notification"`
	RateLimit       RateLimitConfig  `json:"rate_limit"`
}

func loadConfigFromFile(file string) error {
	var cnf Configuration
	_, err := os.Stat(file)
	if err == nil {
		f, err := os.Open(file)
		if err != nil {
			return err
		}
		err = json.NewDecoder(f).Decode(&cnf)
		if err != nil {
			return err
		}

	} else if errors.Is(err, os.ErrNotExist) {
		log.Println("config json not passed, will use env variables")
	}

	// override config from environment variables
	err = envconfig.Process("tijori", &cnf)
	if err != nil {
		return err
	}

	err = cnf.validateAndAddDefaults()
	if err != nil {
		return err
	}

	ConfigStore.Store(&cnf)
	return err
}

func InitConfig(configFile string) error {
	logger()
	return loadConfigFromFile(configFile)
}

func Fetch() (*Configuration, error) {
	config := ConfigStore.Load()
	c, ok := config.(*Configuration)
	if !ok {
		return nil, errors.New("config not loaded from file. Create a json file called tijori.json with your config ❌")
	}
	return c, nil
}

func (cnf *Configuration) validateAndAddDefaults() error {
	if cnf.ProjectName == "" {
		log.Println("Warning: Project name is empty. Setting a default name.")
		cnf.ProjectName = "Tijori Server"
	}

	if cnf.DataSource.Dns == "" {
		log.Println("Error: Data source DNS is empty. It's a required field.")
		return errors.New("data source DNS is required")
	}

	if cnf.Redis.Dns == "" {
		log.Println("Error: Redis DNS is empty. It's a required field.")
		return errors.New("redis DNS is required")
	}

	// Trim white spaces from fields
	cnf.ProjectName = strings.TrimSpace(cnf.ProjectName)
	cnf.Server.Port = strings.TrimSpace(cnf.Server.Port)
	cnf.DataSource.Dns = strings.TrimSpace(cnf.DataSource.Dns)
	cnf.Redis.Dns = strings.TrimSpace(cnf.Redis.Dns)

	if cnf.Server.Port == "" {
		cnf.Server.Port = DEFAULT_PORT
		log.Printf("Warning: Port not specified in config. Setting default port: %s", DEFAULT_PORT)
	}

	if cnf.Queue.TransferQueue == "" {
		cnf.Queue.TransferQueue = "new:transfer"
	}
	if cnf.Queue.WebhookQueue == "" {
		cnf.Queue.WebhookQueue = "new:webhook"
	}
	if cnf.Queue.MaxRetryAttempts <= 0 {
		cnf.Queue.MaxRetryAttempts = 3
	}
	if cnf.Queue.MonitoringPort == "" {
		cnf.Queue.MonitoringPort = "5002"
	}

	if cnf.Settlement.EscrowThreshold <= 0 {
		cnf.Settlement.EscrowThreshold = DEFAULT_ESCROW_THRESHOLD
	}
	if cnf.Settlement.GSTRate == "" {
		cnf.Settlement.GSTRate = "0.18"
	}
	if len(cnf.Settlement.DirectFeeRates) == 0 {
		cnf.Settlement.DirectFeeRates = map[string]string{
			"free":       "0.025",
			"pro":        "0.015",
			"enterprise": "0.01",
		}
	}
	if len(cnf.Settlement.EscrowFeeRates) == 0 {
		cnf.Settlement.EscrowFeeRates = map[string]string{
			"free":       "0.015",
			"pro":        "0.01",
			"enterprise": "0.0075",
		}
	}
	if cnf.Settlement.ProcessingTimeoutSec <= 0 {
		cnf.Settlement.ProcessingTimeoutSec = 30
	}

	// Rate limiting is disabled by default (when both RPS and Burst are nil)
	if cnf.RateLimit.RequestsPerSecond != nil && cnf.RateLimit.Burst == nil {
		defaultBurst := 2 * int(*cnf.RateLimit.RequestsPerSecond)
		cnf.RateLimit.Burst = &defaultBurst
		log.Printf("Warning: Rate limit burst not specified. Setting default value: %d", defaultBurst)
	}
	if cnf.RateLimit.RequestsPerSecond == nil && cnf.RateLimit.Burst != nil {
		defaultRPS := float64(*cnf.RateLimit.Burst) / 2
		cnf.RateLimit.RequestsPerSecond = &defaultRPS
		log.Printf("Warning: Rate limit RPS not specified. Setting default value: %.2f", defaultRPS)
	}
	if cnf.RateLimit.CleanupIntervalSec == nil {
		defaultCleanup := 10800 // 3 hours in seconds
		cnf.RateLimit.CleanupIntervalSec = &defaultCleanup
	}

	return nil
}

// MockConfig stores a configuration directly. Test helper.
func MockConfig(mockConfig *Configuration) {
	ConfigStore.Store(mockConfig)
}

func logger() {
	logger := logrus.New()
	log.SetOutput(logger.Writer())
}
