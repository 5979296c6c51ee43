package parserfx

import (
	"go.uber.org/fx"

	"github.com/0x5457/loca/internal/parser"
	"github.com/0x5457/loca/internal/parser/pyparser"
	"github.com/0x5457/loca/internal/parser/tsparser"
)

// NewRegistry creates the extension registry with the Python and
// TypeScript parsers
func NewRegistry() *parser.Registry {
	return parser.NewRegistry(pyparser.New(), tsparser.New())
}

// Module provides parser components
var Module = fx.Module("parser",
	fx.Provide(
		NewRegistry,
		func(r *parser.Registry) parser.Parser { return r },
	),
)
