package loggingfx

import (
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/0x5457/loca/internal/config/configfx"
	"github.com/0x5457/loca/internal/logging"
)

type Params struct {
	fx.In

	Config *configfx.Config
}

func NewLogger(params Params) (*zap.Logger, error) {
	return logging.New(params.Config.LogLevel)
}

// NewFxLogger routes fx's own events through the zap logger.
func NewFxLogger(logger *zap.Logger) fxevent.Logger {
	return &fxevent.ZapLogger{Logger: logger.Named("fx")}
}

// Module provides the zap logger. fx.WithLogger sits outside the module
// scope so it applies to the whole app.
var Module = fx.Options(
	fx.Module("logging",
		fx.Provide(NewLogger),
	),
	fx.WithLogger(NewFxLogger),
)
