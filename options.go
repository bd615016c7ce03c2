package cdt

import (
	"github.com/soypat/cdt/internal/recovery"
	"go.uber.org/zap"
)

// Option configures ComputeCDT.
type Option func(*config)

type config struct {
	boundingBox bool
	verbose     bool
	log         *zap.Logger
	recovery    recovery.Config
}

func newConfig(opts []Option) config {
	cfg := config{
		recovery: recovery.Config{
			SteinerBudget:   recovery.DefaultSteinerBudget,
			FaceRetryBudget: recovery.DefaultFaceRetryBudget,
			FlipBudget:      recovery.DefaultFlipBudget,
		},
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

func (c config) logger() *zap.Logger {
	if c.log != nil {
		return c.log
	}
	if !c.verbose {
		return zap.NewNop()
	}
	log, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return log.Named("cdt")
}

// WithBoundingBox encloses the input in an axis aligned box of 8 extra
// vertices before tetrahedrizing. The box vertices are not part of the result.
func WithBoundingBox(enable bool) Option {
	return func(c *config) { c.boundingBox = enable }
}

// WithVerbose logs pipeline progress to a development logger.
// It has no effect on the result.
func WithVerbose(enable bool) Option {
	return func(c *config) { c.verbose = enable }
}

// WithLogger logs to log. It takes precedence over WithVerbose.
func WithLogger(log *zap.Logger) Option {
	return func(c *config) { c.log = log }
}

// WithSteinerBudget bounds the number of Steiner vertices recovery may insert.
func WithSteinerBudget(n int) Option {
	return func(c *config) { c.recovery.SteinerBudget = n }
}

// WithFaceRetryBudget bounds recovery attempts per boundary triangle.
func WithFaceRetryBudget(n int) Option {
	return func(c *config) { c.recovery.FaceRetryBudget = n }
}

// WithFlipBudget bounds the flip attempts spent on a single missing constraint.
func WithFlipBudget(n int) Option {
	return func(c *config) { c.recovery.FlipBudget = n }
}
