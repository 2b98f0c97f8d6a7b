package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# Net-worth tracker configuration

[database]
# SQLite database file (defaults to networth.db next to this file)
# path = "/home/me/.config/networth-tracker/networth.db"

[log]
# Log level: debug, info, warn, error
level = "info"
console = true
file = true
# Rotation limits in megabytes and days
max_size = 50
max_backups = 5
max_age = 30

[prices]
# Cached prices younger than this are served without calling a provider
cache_ttl_minutes = 15
# Maximum concurrent provider calls during a batch refresh
batch_concurrency = 5
# Cron expression for the background refresh run by "networth serve"
refresh_schedule = "@every 15m"

[prices.retry]
# Retries after the first attempt for rate limits, network and HTTP errors
max_retries = 3
initial_delay = "1s"
backoff_multiplier = 2.0
max_delay = "30s"

[prices.breaker]
# Consecutive transient failures before a provider is paused (0 disables)
failure_threshold = 5
# How long a paused provider is skipped before a probe request
cooldown = "30s"

[prices.stock]
base_url = "https://query2.finance.yahoo.com"
timeout = "10s"

[prices.crypto]
base_url = "https://api.coingecko.com/api/v3"
pro_base_url = "https://pro-api.coingecko.com/api/v3"
# Setting an API key switches to the pro endpoint (or set NETWORTH_CRYPTO_API_KEY)
api_key = ""
# Currency crypto prices are quoted in
quote_currency = "USD"
timeout = "10s"

[server]
addr = ":8080"
# User assumed when a request carries no X-User-ID header
default_user = "default"
`

func createTemplateConfig(configDir, name string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, name+".toml")
	if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}

	return nil
}
