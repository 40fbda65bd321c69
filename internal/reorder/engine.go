package reorder

import (
	"time"

	"github.com/rs/zerolog"
)

// Options configures an Engine. The zero value is usable and logs nothing.
type Options struct {
	Logger zerolog.Logger
	// Clock stamps results; defaults to time.Now.
	Clock func() time.Time
}

// Engine runs validation and recommendation passes. It holds no state
// between calls and is safe for concurrent use.
type Engine struct {
	log   zerolog.Logger
	clock func() time.Time
}

func NewEngine(opts Options) *Engine {
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Engine{
		log:   opts.Logger.With().Str("component", "reorder").Logger(),
		clock: clock,
	}
}
