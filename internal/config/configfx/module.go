package configfx

import (
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/fx"

	"github.com/0x5457/loca/internal/config"
	"github.com/0x5457/loca/internal/fingerprint"
	"github.com/0x5457/loca/internal/util"
)

const (
	DefaultEmbedProvider  = "local"
	DefaultEmbedURL       = "http://localhost:8000/embed"
	DefaultOpenAIModel    = "text-embedding-3-small"
	DefaultLocalDimension = 256
	DefaultBatchSize      = 64
	DefaultWorkers        = 4
	DefaultQueryCacheSize = 128
	DefaultQueryCacheTTL  = 10 * time.Minute
	DefaultBackend        = "sqlite"
	DefaultQdrantAddr     = "localhost:6334"
	DefaultCollectionBase = "loca"
	DefaultLogLevel       = "warn"
)

// Config holds the runtime configuration for one project.
type Config struct {
	Home        string // directory holding loca.toml and the per-project caches
	ProjectRoot string
	CacheDir    string
	LogLevel    string

	EmbedProvider  string
	EmbedURL       string
	EmbedModel     string
	EmbedAPIKey    string
	Dimension      int
	BatchSize      int
	Workers        int
	QueryCacheSize int
	QueryCacheTTL  time.Duration

	Backend    string
	QdrantAddr string
	Collection string

	// Exclude lists extra directory names skipped by discovery.
	Exclude []string
}

// EmbedIdentity names the embedding space. Vectors from different
// identities are not comparable.
func (c *Config) EmbedIdentity() string {
	url := c.EmbedURL
	if c.EmbedProvider == "local" {
		url = ""
	}
	return fmt.Sprintf("%s|%s|%s|%d", c.EmbedProvider, url, c.EmbedModel, c.Dimension)
}

// Profile names the backend and embedder pairing, e.g. "sqlite-local-1a2b3c4d".
func (c *Config) Profile() string {
	return fmt.Sprintf("%s-%s-%s", c.Backend, c.EmbedProvider, fingerprint.String(c.EmbedIdentity())[:8])
}

// InMemory reports whether the vector store lives only as long as the process.
func (c *Config) InMemory() bool { return c.Backend == "memory" }

// VectorDBPath is the sqlite-vec database file for the project.
func (c *Config) VectorDBPath() string { return filepath.Join(c.CacheDir, "vectors.db") }

// SymbolDBPath is the symbol table database file for the project.
func (c *Config) SymbolDBPath() string { return filepath.Join(c.CacheDir, "symbols.db") }

// Params represents the parameters needed to create configuration.
// Non-empty values override the config file. When Project is empty and Cwd
// is set, Cwd must lie under the configured project root.
type Params struct {
	fx.In

	Home          string `name:"home"          optional:"true"`
	Project       string `name:"project"       optional:"true"`
	Cwd           string `name:"cwd"           optional:"true"`
	LogLevel      string `name:"logLevel"      optional:"true"`
	EmbedProvider string `name:"embedProvider" optional:"true"`
	EmbedURL      string `name:"embedURL"      optional:"true"`
	Backend       string `name:"backend"       optional:"true"`
}

// NewConfig merges the config file under Home with the supplied overrides
// and fills in defaults.
func NewConfig(params Params) (*Config, error) {
	home := params.Home
	if home == "" {
		d, err := config.DefaultDir()
		if err != nil {
			return nil, err
		}
		home = d
	}
	file, err := config.Load(home)
	if err != nil {
		return nil, err
	}

	root := params.Project
	switch {
	case root != "":
	case params.Cwd != "":
		if root, err = file.ResolveProjectRoot(params.Cwd); err != nil {
			return nil, err
		}
	default:
		root = file.ProjectRoot
	}
	if root == "" {
		return nil, config.ErrProjectRootUnset
	}
	root, err = filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrInvalidRoot, err)
	}

	cfg := &Config{
		Home:           home,
		ProjectRoot:    root,
		LogLevel:       firstNonEmpty(params.LogLevel, DefaultLogLevel),
		EmbedProvider:  firstNonEmpty(params.EmbedProvider, file.Embed.Provider, DefaultEmbedProvider),
		EmbedURL:       firstNonEmpty(params.EmbedURL, file.Embed.URL, DefaultEmbedURL),
		EmbedModel:     file.Embed.Model,
		EmbedAPIKey:    file.Embed.APIKey,
		Dimension:      file.Embed.Dimension,
		BatchSize:      positiveOr(file.Embed.BatchSize, DefaultBatchSize),
		Workers:        positiveOr(file.Embed.Workers, DefaultWorkers),
		QueryCacheSize: positiveOr(file.Embed.QueryCacheSize, DefaultQueryCacheSize),
		QueryCacheTTL:  DefaultQueryCacheTTL,
		Backend:        firstNonEmpty(params.Backend, file.Store.Backend, DefaultBackend),
		QdrantAddr:     firstNonEmpty(file.Store.QdrantAddr, DefaultQdrantAddr),
		Collection:     file.Store.Collection,
		Exclude:        file.Index.Exclude,
	}
	if file.Embed.QueryCacheTTL != "" {
		ttl, err := time.ParseDuration(file.Embed.QueryCacheTTL)
		if err != nil {
			return nil, fmt.Errorf("embed.query_cache_ttl: %w", err)
		}
		cfg.QueryCacheTTL = ttl
	}
	switch cfg.EmbedProvider {
	case "local":
		cfg.Dimension = positiveOr(cfg.Dimension, DefaultLocalDimension)
	case "openai":
		cfg.EmbedModel = firstNonEmpty(cfg.EmbedModel, DefaultOpenAIModel)
	}
	cfg.CacheDir = config.ProfileCacheDir(home, root, cfg.Profile())
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection(root, cfg)
	}
	return cfg, nil
}

// DefaultCollection is the Qdrant collection for root and the configured
// embedder: loca_<projectKey>_<embedder hash>.
func DefaultCollection(root string, cfg *Config) string {
	return fmt.Sprintf("%s_%s_%s", DefaultCollectionBase, util.ProjectKey(root), fingerprint.String(cfg.EmbedIdentity())[:8])
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func positiveOr(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

// Module provides configuration for the application
var Module = fx.Module("config",
	fx.Provide(NewConfig),
)
