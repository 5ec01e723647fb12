package observability

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogger configures the process-wide logger. Dev environments get a
// console writer; everything else emits JSON lines.
func InitLogger(app, env string) zerolog.Logger {
	var logger zerolog.Logger
	if env == "dev" {
		output := zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
		logger = zerolog.New(output).With().Timestamp().Str("app", app).Logger()
	} else {
		logger = zerolog.New(os.Stdout).With().Timestamp().Str("app", app).Logger()
	}
	log.Logger = logger
	return logger
}
