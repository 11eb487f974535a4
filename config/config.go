package config

import (
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// AppConfig holds everything the gateway needs to run. Values come from an
// optional YAML file overridden by CRIMELENS_* environment variables.
type AppConfig struct {
	ListenAddr string `yaml:"listen_addr" env:"CRIMELENS_LISTEN_ADDR" env-default:"0.0.0.0:8080"`
	LogLevel   string `yaml:"log_level" env:"CRIMELENS_LOG_LEVEL" env-default:"info"`

	BulkBaseURL string   `yaml:"bulk_base_url" env:"CRIMELENS_BULK_BASE_URL" env-default:"https://idtjzemdsv58.objectstorage.us-ashburn-1.oci.customer-oci.com/n/idtjzemdsv58/b/boston-crime-data/o/"`
	BulkFiles   []string `yaml:"bulk_files" env:"CRIMELENS_BULK_FILES" env-default:"2015.csv,2016.csv,2017.csv,2018.csv,2019.csv,2020.csv,2021.csv,2022.csv,2023-present.csv"`

	LiveAPIURL     string `yaml:"live_api_url" env:"CRIMELENS_LIVE_API_URL" env-default:"https://data.boston.gov/api/3/action/datastore_search"`
	LiveResourceID string `yaml:"live_resource_id" env:"CRIMELENS_LIVE_RESOURCE_ID" env-default:"b973d8cb-eeb2-4e7e-99da-c92938efc9c0"`
	LiveLimit      int    `yaml:"live_limit" env:"CRIMELENS_LIVE_LIMIT" env-default:"500000"`

	RefreshTTL   time.Duration `yaml:"refresh_ttl" env:"CRIMELENS_REFRESH_TTL" env-default:"1h"`
	FetchTimeout time.Duration `yaml:"fetch_timeout" env:"CRIMELENS_FETCH_TIMEOUT" env-default:"2m"`

	ExportMaxRows int    `yaml:"export_max_rows" env:"CRIMELENS_EXPORT_MAX_ROWS" env-default:"50000"`
	SnapshotPath  string `yaml:"snapshot_path" env:"CRIMELENS_SNAPSHOT_PATH"`
}

// Load reads configuration from path when the file exists, otherwise from the
// environment alone.
func Load(path string) (*AppConfig, error) {
	cfg := &AppConfig{}
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := cleanenv.ReadConfig(path, cfg); err != nil {
				return nil, err
			}
			return cfg, nil
		}
	}
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
