package configfx

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"

	"github.com/0x5457/loca/internal/config"
)

func TestConfigModule(t *testing.T) {
	home := t.TempDir()
	project := t.TempDir()

	var cfg *Config
	app := fx.New(
		Module,
		fx.Supply(
			fx.Annotate(home, fx.ResultTags(`name:"home"`)),
			fx.Annotate(project, fx.ResultTags(`name:"project"`)),
			fx.Annotate("http://localhost:9000/embed", fx.ResultTags(`name:"embedURL"`)),
			fx.Annotate("memory", fx.ResultTags(`name:"backend"`)),
		),
		fx.Populate(&cfg),
	)

	ctx := context.Background()
	require.NoError(t, app.Start(ctx))
	defer func() {
		require.NoError(t, app.Stop(ctx))
	}()

	require.NotNil(t, cfg)
	assert.Equal(t, home, cfg.Home)
	assert.Equal(t, project, cfg.ProjectRoot)
	assert.Equal(t, config.ProfileCacheDir(home, project, cfg.Profile()), cfg.CacheDir)
	assert.Equal(t, "http://localhost:9000/embed", cfg.EmbedURL)
	assert.Equal(t, "memory", cfg.Backend)
	assert.Equal(t, filepath.Join(cfg.CacheDir, "vectors.db"), cfg.VectorDBPath())
}

func TestConfigDefaults(t *testing.T) {
	home := t.TempDir()
	project := t.TempDir()
	_, err := config.SetProjectRoot(home, project)
	require.NoError(t, err)

	cfg, err := NewConfig(Params{Home: home})
	require.NoError(t, err)
	assert.Equal(t, project, cfg.ProjectRoot)
	assert.Equal(t, DefaultEmbedProvider, cfg.EmbedProvider)
	assert.Equal(t, DefaultEmbedURL, cfg.EmbedURL)
	assert.Equal(t, DefaultLocalDimension, cfg.Dimension)
	assert.Equal(t, DefaultBackend, cfg.Backend)
	assert.Equal(t, DefaultBatchSize, cfg.BatchSize)
	assert.Equal(t, DefaultQueryCacheTTL, cfg.QueryCacheTTL)
	assert.Equal(t, DefaultLogLevel, cfg.LogLevel)
}

func TestConfigFileValues(t *testing.T) {
	home := t.TempDir()
	body := `current_project_root = "/src/proj"

[embed]
provider = "openai"
api_key = "sk-test"
query_cache_ttl = "30s"

[store]
backend = "qdrant"
collection = "code"

[index]
exclude = ["build", "dist"]
`
	require.NoError(t, os.WriteFile(filepath.Join(home, config.FileName), []byte(body), 0o644))

	cfg, err := NewConfig(Params{Home: home})
	require.NoError(t, err)
	assert.Equal(t, "/src/proj", cfg.ProjectRoot)
	assert.Equal(t, "openai", cfg.EmbedProvider)
	assert.Equal(t, DefaultOpenAIModel, cfg.EmbedModel)
	assert.Equal(t, "sk-test", cfg.EmbedAPIKey)
	assert.Equal(t, "qdrant", cfg.Backend)
	assert.Equal(t, "code", cfg.Collection)
	assert.Equal(t, DefaultQdrantAddr, cfg.QdrantAddr)
	assert.Equal(t, "30s", cfg.QueryCacheTTL.String())
	assert.Equal(t, []string{"build", "dist"}, cfg.Exclude)
}

func TestConfigRootUnset(t *testing.T) {
	_, err := NewConfig(Params{Home: t.TempDir()})
	assert.ErrorIs(t, err, config.ErrProjectRootUnset)
}

func TestConfigCwdOutsideRoot(t *testing.T) {
	home := t.TempDir()
	project := t.TempDir()
	_, err := config.SetProjectRoot(home, project)
	require.NoError(t, err)

	_, err = NewConfig(Params{Home: home, Cwd: t.TempDir()})
	assert.ErrorIs(t, err, config.ErrProjectRootUnset)

	sub := filepath.Join(project, "pkg")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	cfg, err := NewConfig(Params{Home: home, Cwd: sub})
	require.NoError(t, err)
	resolved, err := filepath.EvalSymlinks(project)
	require.NoError(t, err)
	assert.Equal(t, resolved, cfg.ProjectRoot)
}

func TestCacheDirPerBackendAndEmbedder(t *testing.T) {
	home := t.TempDir()
	project := t.TempDir()
	_, err := config.SetProjectRoot(home, project)
	require.NoError(t, err)

	sqliteCfg, err := NewConfig(Params{Home: home})
	require.NoError(t, err)
	memCfg, err := NewConfig(Params{Home: home, Backend: "memory"})
	require.NoError(t, err)
	apiCfg, err := NewConfig(Params{Home: home, EmbedProvider: "api"})
	require.NoError(t, err)
	again, err := NewConfig(Params{Home: home})
	require.NoError(t, err)

	projectDir := config.ProjectCacheDir(home, project)
	assert.Equal(t, projectDir, filepath.Dir(sqliteCfg.CacheDir))
	assert.True(t, strings.HasPrefix(filepath.Base(sqliteCfg.CacheDir), "sqlite-local-"))
	assert.NotEqual(t, sqliteCfg.CacheDir, memCfg.CacheDir)
	assert.NotEqual(t, sqliteCfg.CacheDir, apiCfg.CacheDir)
	assert.Equal(t, sqliteCfg.CacheDir, again.CacheDir)
	assert.True(t, memCfg.InMemory())
	assert.False(t, sqliteCfg.InMemory())
}

func TestDefaultCollectionPerProject(t *testing.T) {
	home := t.TempDir()
	a, err := NewConfig(Params{Home: home, Project: t.TempDir(), Backend: "qdrant"})
	require.NoError(t, err)
	b, err := NewConfig(Params{Home: home, Project: t.TempDir(), Backend: "qdrant"})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(a.Collection, "loca_"))
	assert.NotEqual(t, a.Collection, b.Collection)
	assert.Equal(t, DefaultCollection(a.ProjectRoot, a), a.Collection)
}
