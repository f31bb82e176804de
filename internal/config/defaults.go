package config

const (
	defaultConfigPath           = "~/.config/relink/config.toml"
	defaultLedgerFile           = "~/.local/share/relink/ledger.json"
	defaultContentDB            = "~/.local/share/relink/content.db"
	defaultLogDir               = "~/.local/share/relink/logs"
	defaultBackupDir            = "~/.local/share/relink/backups"
	defaultCanonicalLinkPrefix  = "/product/"
	defaultAutoApproveThreshold = 85
	defaultLookbehind           = 3000
	defaultLookahead            = 400
	defaultMinSignalLength      = 4
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultBackupRetentionDays  = 30

	// contentDBEnv supplies the content database path when the config leaves it empty.
	contentDBEnv = "RELINK_CONTENT_DB"

	maxContextWindow = 1 << 20
	maxWorkers       = 256
)

var (
	defaultKinds        = []string{"product", "add_to_cart", "product_page"}
	defaultLinkPrefixes = []string{"/product/", "/products/", "/shop/"}
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LedgerFile: defaultLedgerFile,
			LogDir:     defaultLogDir,
			BackupDir:  defaultBackupDir,
		},
		Shortcodes: Shortcodes{
			Kinds:               append([]string(nil), defaultKinds...),
			LinkPrefixes:        append([]string(nil), defaultLinkPrefixes...),
			CanonicalLinkPrefix: defaultCanonicalLinkPrefix,
		},
		Matching: Matching{
			AutoApproveThreshold: defaultAutoApproveThreshold,
			Lookbehind:           defaultLookbehind,
			Lookahead:            defaultLookahead,
			MinSignalLength:      defaultMinSignalLength,
		},
		Ledger: Ledger{
			BackupOnReview:      true,
			BackupRetentionDays: defaultBackupRetentionDays,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
