package parserfx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"

	"github.com/0x5457/loca/internal/parser"
)

func TestParserModule(t *testing.T) {
	var p parser.Parser
	var registry *parser.Registry
	app := fx.New(
		Module,
		fx.Populate(&p, &registry),
	)

	ctx := context.Background()
	require.NoError(t, app.Start(ctx))
	defer func() {
		require.NoError(t, app.Stop(ctx))
	}()

	assert.NotNil(t, p)
	assert.Equal(t, []string{".py", ".ts", ".tsx"}, registry.Extensions())
}
