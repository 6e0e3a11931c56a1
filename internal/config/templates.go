package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# Harvest Ledger Configuration

[storage]
# Persistence backend: "sqlite", "file" or "memory"
driver = "sqlite"
# SQLite database file, or directory for the file backend
path = "~/.config/harvest-ledger/ledger.db"
# Key the ledger state is stored under
key = "bitcoin-trade-tracker"

[import]
# Settlement records carry no cost basis. Imported trades get
# contract_exchange_rate * cost_basis_ratio as a placeholder to correct by hand.
cost_basis_ratio = "0.95"
# Whether imported purchases are funded from the premium pool
default_from_pool = true

[log]
# Log level: debug, info, warn, error
level = "info"
console = true
file = true
file_path = "~/.config/harvest-ledger/logs/harvest.log"
max_size = 10
max_backups = 5
max_age = 30

[ui]
# Enable colored output
color_enabled = true
currency = "USD"
`

func createTemplateConfig(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "config.toml")
	if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}

	return nil
}
