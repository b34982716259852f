package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example42/sai-suite-sub001/errors"
)

func TestValidateArchiveMember(t *testing.T) {
	v := NewValidator(WithMaxMemberSize(1024), WithMaxCompressionRatio(10))

	tests := []struct {
		name       string
		member     string
		size       int64
		compressed int64
		safe       bool
		fatal      bool
	}{
		{"plain file", "saidata-abc123/software/ng/nginx.yaml", 100, 50, true, false},
		{"directory", "saidata-abc123/", 0, 0, true, false},
		{"absolute", "/etc/passwd", 10, 10, false, true},
		{"windows drive", "C:\\Windows\\evil.dll", 10, 10, false, true},
		{"unc", "\\\\server\\share\\x", 10, 10, false, true},
		{"dotdot", "../../etc/cron.d/evil", 10, 10, false, true},
		{"dotdot middle", "a/../../b", 10, 10, false, true},
		{"encoded dotdot", "a/%2e%2e/b", 10, 10, false, true},
		{"nul", "a\x00b", 10, 10, false, true},
		{"control", "a\x07b", 10, 10, false, true},
		{"oversized", "big.bin", 4096, 4000, false, false},
		{"bomb ratio", "bomb.txt", 1000, 10, false, false},
		{"unknown compressed size", "file.txt", 1000, 0, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verdict := v.ValidateArchiveMember(tt.member, tt.size, tt.compressed)
			assert.Equal(t, tt.safe, verdict.Safe)
			assert.Equal(t, tt.fatal, verdict.Fatal)
			if !tt.safe {
				assert.NotEmpty(t, verdict.Reason)
			}
		})
	}
}

func TestExtractionTally(t *testing.T) {
	v := NewValidator(WithMaxMemberSize(10))

	t.Run("fatal member errors immediately", func(t *testing.T) {
		var tally ExtractionTally
		err := tally.Record("../x", v.ValidateArchiveMember("../x", 1, 1))
		require.Error(t, err)
		assert.True(t, errors.IsSecurity(err))
	})

	t.Run("blocked outnumber safe", func(t *testing.T) {
		var tally ExtractionTally
		require.NoError(t, tally.Record("a", v.ValidateArchiveMember("a", 1, 0)))
		require.NoError(t, tally.Record("b", v.ValidateArchiveMember("b", 100, 0)))
		require.NoError(t, tally.Err())
		require.NoError(t, tally.Record("c", v.ValidateArchiveMember("c", 100, 0)))

		err := tally.Err()
		require.Error(t, err)
		assert.Equal(t, errors.CodeSecurity, errors.GetCode(err))
		assert.Equal(t, 1, tally.Safe)
		assert.Equal(t, 2, tally.Blocked)
	})
}
