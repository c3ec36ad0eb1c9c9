package copytrade

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithEnvConfigs_Defaults(t *testing.T) {
	ctx := context.Background()
	c := WithEnvConfigs()()

	assert.EqualValues(t, defaultSlippageBps, c.slippageBps.Get(ctx))
	assert.EqualValues(t, defaultComputeUnitLimit, c.computeUnitLimit.Get(ctx))
	assert.EqualValues(t, defaultComputeUnitPrice, c.computeUnitPrice.Get(ctx))
	assert.Equal(t, defaultCommitment, c.commitment.Get(ctx))
	assert.Equal(t, defaultSkipPreflight, c.skipPreflight.Get(ctx))
	assert.EqualValues(t, defaultMaxSendRetries, c.maxSendRetries.Get(ctx))
	assert.Equal(t, defaultConfirmationTimeout, c.confirmationTimeout.Get(ctx))
	assert.Equal(t, defaultConfirmationPollInterval, c.confirmationPollInterval.Get(ctx))
	assert.Equal(t, defaultEnableMemo, c.enableMemo.Get(ctx))
	assert.EqualValues(t, defaultMaxBuysPerMintPerMinute, c.maxBuysPerMintPerMinute.Get(ctx))
}

func TestWithEnvConfigs_Overrides(t *testing.T) {
	ctx := context.Background()

	t.Setenv(SlippageBpsConfigEnvName, "250")
	t.Setenv(CommitmentConfigEnvName, "finalized")
	t.Setenv(SkipPreflightConfigEnvName, "true")
	t.Setenv(ConfirmationTimeoutConfigEnvName, "1m")
	t.Setenv(EnableMemoConfigEnvName, "false")

	c := WithEnvConfigs()()
	assert.EqualValues(t, 250, c.slippageBps.Get(ctx))
	assert.Equal(t, "finalized", c.commitment.Get(ctx))
	assert.True(t, c.skipPreflight.Get(ctx))
	assert.Equal(t, time.Minute, c.confirmationTimeout.Get(ctx))
	assert.False(t, c.enableMemo.Get(ctx))

	// Unparseable values fall back to the default
	t.Setenv(ComputeUnitLimitConfigEnvName, "lots")
	assert.EqualValues(t, defaultComputeUnitLimit, c.computeUnitLimit.Get(ctx))
	_, err := c.computeUnitLimit.GetSafe(ctx)
	assert.Error(t, err)
}

func TestWithEnvFile(t *testing.T) {
	ctx := context.Background()

	// Registered for restore before the file sets it
	t.Setenv(ComputeUnitPriceConfigEnvName, "")
	require.NoError(t, os.Unsetenv(ComputeUnitPriceConfigEnvName))
	t.Setenv(SlippageBpsConfigEnvName, "300")

	path := filepath.Join(t.TempDir(), "copytrade.env")
	require.NoError(t, os.WriteFile(path, []byte(
		ComputeUnitPriceConfigEnvName+"=5000\n"+
			SlippageBpsConfigEnvName+"=900\n",
	), 0o600))

	provider, err := WithEnvFile(path)
	require.NoError(t, err)

	c := provider()
	assert.EqualValues(t, 5000, c.computeUnitPrice.Get(ctx))

	// The environment wins over the file
	assert.EqualValues(t, 300, c.slippageBps.Get(ctx))
}
