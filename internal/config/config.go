package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/tmontague/datafetch/internal/model"
)

// Default configuration values.
const (
	// DefaultTimeout bounds each HTTP request, including reading the body.
	// The movie datasets are small; a minute covers slow mirrors.
	DefaultTimeout = 60 * time.Second

	// DefaultUserAgent identifies datafetch in HTTP requests.
	DefaultUserAgent = "datafetch/1.0 (+https://github.com/tmontague/datafetch)"

	// DefaultMaxBodySize limits the response body size to read.
	// A response larger than this fails the fetch rather than being truncated.
	DefaultMaxBodySize = 100 * 1024 * 1024 // 100MB

	// DefaultRoot is the directory lane paths are resolved against.
	DefaultRoot = "."

	// AppName is the application name used for XDG directory paths.
	AppName = "datafetch"
)

// Config holds all configuration options for a datafetch run.
// It is populated from defaults, an optional YAML file, and CLI flags, in
// that order, and passed explicitly to the pipeline driver.
type Config struct {
	// Root is the directory relative lane paths are resolved against.
	Root string

	// Lanes are the pipeline lanes, one per content kind.
	Lanes []Lane

	// Kinds restricts the run to these content kinds. Empty means all lanes.
	Kinds []model.ContentKind

	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration

	// UserAgent is the User-Agent header sent with every request.
	UserAgent string

	// MaxBodySize is the maximum response body size in bytes.
	MaxBodySize int64

	// ProxyAddress is an optional SOCKS5 proxy in "host:port" format.
	// Empty means connect directly.
	ProxyAddress string

	// ConfigFilePath is the path to the YAML configuration file.
	// If empty, FindConfigFile searches the default locations.
	ConfigFilePath string

	// SkipProcess disables the processing phase; only payloads are fetched.
	SkipProcess bool

	// Strict makes the run command exit non-zero when any lane fails.
	// By default a run always completes successfully after trying every lane.
	Strict bool

	// JSONReport prints the run summary as JSON.
	// Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport prints the run summary as Markdown.
	// Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is the output file for the run summary. Empty means stdout.
	ReportFile string

	// SaveHistory records the run in the SQLite history database.
	SaveHistory bool

	// HistoryDir is the directory of the history database.
	HistoryDir string

	// Verbose enables debug logging.
	Verbose bool
}

// NewConfig creates a new Config with default values and the default lanes.
func NewConfig() *Config {
	return &Config{
		Root:        DefaultRoot,
		Lanes:       DefaultLanes(),
		Timeout:     DefaultTimeout,
		UserAgent:   DefaultUserAgent,
		MaxBodySize: DefaultMaxBodySize,
		SaveHistory: true,
		HistoryDir:  XDGDataDir(),
	}
}

// XDGDataDir returns the XDG data directory for datafetch.
// On Linux: ~/.local/share/datafetch
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for datafetch.
// On Linux: ~/.config/datafetch
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// ApplyFile merges values from a configuration file into c.
// Only non-zero file values override; file lanes are merged into the
// existing lanes by kind.
func (c *Config) ApplyFile(f *File) {
	if f == nil {
		return
	}
	if f.Root != "" {
		c.Root = f.Root
	}
	if f.Timeout > 0 {
		c.Timeout = f.Timeout
	}
	if f.UserAgent != "" {
		c.UserAgent = f.UserAgent
	}
	if f.MaxBodySize > 0 {
		c.MaxBodySize = f.MaxBodySize
	}
	if f.Proxy != "" {
		c.ProxyAddress = f.Proxy
	}
	if f.DisableHistory {
		c.SaveHistory = false
	}
	if f.HistoryDir != "" {
		c.HistoryDir = f.HistoryDir
	}
	if len(f.Lanes) > 0 {
		c.Lanes = MergeLanes(c.Lanes, f.Lanes)
	}
}

// SelectedLanes returns the lanes to run, honoring Kinds.
// Lane order is preserved.
func (c *Config) SelectedLanes() []Lane {
	if len(c.Kinds) == 0 {
		return c.Lanes
	}

	wanted := make(map[model.ContentKind]bool, len(c.Kinds))
	for _, k := range c.Kinds {
		wanted[k] = true
	}

	selected := make([]Lane, 0, len(c.Lanes))
	for _, lane := range c.Lanes {
		if wanted[lane.Kind] {
			selected = append(selected, lane)
		}
	}
	return selected
}

// Validate checks if the configuration is valid.
// It returns the first problem found.
func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.MaxBodySize <= 0 {
		return ErrInvalidMaxBodySize
	}

	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	if c.ProxyAddress != "" && !isHostPort(c.ProxyAddress) {
		return ErrInvalidProxyAddress
	}

	for _, k := range c.Kinds {
		if !k.Valid() {
			return ErrInvalidLaneKind
		}
	}

	lanes := c.SelectedLanes()
	if len(lanes) == 0 {
		return ErrNoLanes
	}

	return validateLanes(lanes)
}
