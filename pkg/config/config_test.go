package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_PassesValidation(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, Validate(cfg))
	assert.Equal(t, "INFO", cfg.Logging.Level)
	assert.InDelta(t, 2.0, cfg.Sync.WantsRewriteRatio, 0.0001)
}

func TestValidate_RejectsBadLoggingLevel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Logging.Level = "VERBOSE"
	assert.Error(t, Validate(cfg))
}

func TestValidate_RejectsNonPositiveRewriteRatio(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Sync.WantsRewriteRatio = 0
	cfg.Sync.WantsRewriteRatio = -1
	assert.Error(t, Validate(cfg))
}

func TestValidate_RejectsUnparsableFilterCIDR(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Filters = []FilterConfig{{LocalNet: "not-a-cidr"}}
	assert.Error(t, Validate(cfg))
}

func TestBuildParsers_SynthesizesFileAndLineWhenUnset(t *testing.T) {
	parsers, err := BuildParsers("mailidx.yaml", []FilterConfig{
		{Service: "imap", Settings: map[string]string{"x": "A"}},
	})
	require.NoError(t, err)
	require.Len(t, parsers, 1)
	assert.Equal(t, "imap", parsers[0].Filter.Service)
	assert.Equal(t, "mailidx.yaml:config_filter[0]", parsers[0].FileAndLine)
}

func TestBuildParsers_ParsesCIDRFields(t *testing.T) {
	parsers, err := BuildParsers("mailidx.yaml", []FilterConfig{
		{RemoteNet: "10.0.0.0/8"},
	})
	require.NoError(t, err)
	require.Len(t, parsers, 1)
	assert.Equal(t, 8, parsers[0].Filter.RemoteNet.Bits())
}
