package ports

import "github.com/HustleDanie/Realtime-Vision-System-sub001/pkg/log"

// Logger is the structured logging interface used throughout the agent.
// See pkg/log for the zerolog and noop implementations.
type Logger = log.Logger

// Field is a key-value pair for structured logging.
type Field = log.Field

// Field constructors, re-exported for convenience so adapters and the
// application core only import ports.
var (
	String   = log.String
	Int      = log.Int
	Int64    = log.Int64
	Float64  = log.Float64
	Bool     = log.Bool
	Duration = log.Duration
	Err      = log.Err
	Any      = log.Any
)
