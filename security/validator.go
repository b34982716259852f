package security

import (
	"strings"

	"go.uber.org/zap"
)

// Level controls how URL findings are treated.
type Level string

const (
	LevelStrict     Level = "strict"
	LevelModerate   Level = "moderate"
	LevelPermissive Level = "permissive"
)

// ParseLevel maps a configuration string to a Level. Unknown values
// resolve to LevelModerate.
func ParseLevel(s string) Level {
	switch Level(strings.ToLower(strings.TrimSpace(s))) {
	case LevelStrict:
		return LevelStrict
	case LevelPermissive:
		return LevelPermissive
	default:
		return LevelModerate
	}
}

const (
	// DefaultMaxMemberSize caps a single extracted archive member.
	DefaultMaxMemberSize int64 = 100 * 1024 * 1024

	// DefaultMaxCompressionRatio flags members that expand by more than this factor.
	DefaultMaxCompressionRatio = 100.0
)

// Validator performs URL, path, archive member and checksum validation.
// It holds no mutable state and is safe for concurrent use.
type Validator struct {
	level               Level
	maxMemberSize       int64
	maxCompressionRatio float64
	allowPrivateHosts   bool
	logger              *zap.Logger
}

// Option configures a Validator.
type Option func(*Validator)

// WithLevel sets the strictness level.
func WithLevel(level Level) Option {
	return func(v *Validator) {
		v.level = level
	}
}

// WithMaxMemberSize sets the per-member size cap for archive extraction.
func WithMaxMemberSize(n int64) Option {
	return func(v *Validator) {
		if n > 0 {
			v.maxMemberSize = n
		}
	}
}

// WithMaxCompressionRatio sets the decompression bomb threshold.
func WithMaxCompressionRatio(ratio float64) Option {
	return func(v *Validator) {
		if ratio > 0 {
			v.maxCompressionRatio = ratio
		}
	}
}

// WithAllowPrivateHosts accepts loopback and private network hosts.
// Self-hosted mirrors on an internal network need this.
func WithAllowPrivateHosts() Option {
	return func(v *Validator) {
		v.allowPrivateHosts = true
	}
}

// WithLogger sets the logger used for advisory findings.
func WithLogger(logger *zap.Logger) Option {
	return func(v *Validator) {
		v.logger = logger
	}
}

// NewValidator creates a Validator at LevelModerate with default limits.
func NewValidator(opts ...Option) *Validator {
	v := &Validator{
		level:               LevelModerate,
		maxMemberSize:       DefaultMaxMemberSize,
		maxCompressionRatio: DefaultMaxCompressionRatio,
		logger:              zap.NewNop(),
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.logger == nil {
		v.logger = zap.NewNop()
	}
	return v
}

// Level returns the configured strictness level.
func (v *Validator) Level() Level {
	return v.level
}

// MaxCompressionRatio returns the configured decompression bomb threshold.
func (v *Validator) MaxCompressionRatio() float64 {
	return v.maxCompressionRatio
}

// MaxMemberSize returns the per-member size cap for archive extraction.
func (v *Validator) MaxMemberSize() int64 {
	return v.maxMemberSize
}
