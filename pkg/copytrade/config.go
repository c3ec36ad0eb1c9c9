package copytrade

import (
	"time"

	"github.com/code-payments/copy-trader/pkg/config"
	"github.com/code-payments/copy-trader/pkg/config/env"
	"github.com/code-payments/copy-trader/pkg/config/memory"
	"github.com/code-payments/copy-trader/pkg/config/wrapper"
)

const (
	envConfigPrefix = "COPYTRADE_"

	SlippageBpsConfigEnvName = envConfigPrefix + "SLIPPAGE_BPS"
	defaultSlippageBps       = 500

	ComputeUnitLimitConfigEnvName = envConfigPrefix + "COMPUTE_UNIT_LIMIT"
	defaultComputeUnitLimit       = 200_000

	// Zero derives the price from recent prioritization fees
	ComputeUnitPriceConfigEnvName = envConfigPrefix + "COMPUTE_UNIT_PRICE"
	defaultComputeUnitPrice       = 0

	CommitmentConfigEnvName = envConfigPrefix + "COMMITMENT"
	defaultCommitment       = "confirmed"

	SkipPreflightConfigEnvName = envConfigPrefix + "SKIP_PREFLIGHT"
	defaultSkipPreflight       = false

	// Zero leaves rebroadcasting to the node
	MaxSendRetriesConfigEnvName = envConfigPrefix + "MAX_SEND_RETRIES"
	defaultMaxSendRetries       = 0

	ConfirmationTimeoutConfigEnvName = envConfigPrefix + "CONFIRMATION_TIMEOUT"
	defaultConfirmationTimeout       = 30 * time.Second

	ConfirmationPollIntervalConfigEnvName = envConfigPrefix + "CONFIRMATION_POLL_INTERVAL"
	defaultConfirmationPollInterval       = 400 * time.Millisecond

	EnableMemoConfigEnvName = envConfigPrefix + "ENABLE_MEMO"
	defaultEnableMemo       = true

	// Zero disables rate limiting. Read once, when the executor is created.
	MaxBuysPerMintPerMinuteConfigEnvName = envConfigPrefix + "MAX_BUYS_PER_MINT_PER_MINUTE"
	defaultMaxBuysPerMintPerMinute       = 0
)

type conf struct {
	slippageBps              config.Uint64
	computeUnitLimit         config.Uint64
	computeUnitPrice         config.Uint64
	commitment               config.String
	skipPreflight            config.Bool
	maxSendRetries           config.Uint64
	confirmationTimeout      config.Duration
	confirmationPollInterval config.Duration
	enableMemo               config.Bool
	maxBuysPerMintPerMinute  config.Uint64
}

// ConfigProvider defines how config values are pulled
type ConfigProvider func() *conf

// WithEnvConfigs returns configuration pulled from environment variables
func WithEnvConfigs() ConfigProvider {
	return func() *conf {
		return &conf{
			slippageBps:              env.NewUint64Config(SlippageBpsConfigEnvName, defaultSlippageBps),
			computeUnitLimit:         env.NewUint64Config(ComputeUnitLimitConfigEnvName, defaultComputeUnitLimit),
			computeUnitPrice:         env.NewUint64Config(ComputeUnitPriceConfigEnvName, defaultComputeUnitPrice),
			commitment:               env.NewStringConfig(CommitmentConfigEnvName, defaultCommitment),
			skipPreflight:            env.NewBoolConfig(SkipPreflightConfigEnvName, defaultSkipPreflight),
			maxSendRetries:           env.NewUint64Config(MaxSendRetriesConfigEnvName, defaultMaxSendRetries),
			confirmationTimeout:      env.NewDurationConfig(ConfirmationTimeoutConfigEnvName, defaultConfirmationTimeout),
			confirmationPollInterval: env.NewDurationConfig(ConfirmationPollIntervalConfigEnvName, defaultConfirmationPollInterval),
			enableMemo:               env.NewBoolConfig(EnableMemoConfigEnvName, defaultEnableMemo),
			maxBuysPerMintPerMinute:  env.NewUint64Config(MaxBuysPerMintPerMinuteConfigEnvName, defaultMaxBuysPerMintPerMinute),
		}
	}
}

// WithEnvFile is WithEnvConfigs after loading variables from .env files.
// Variables already present in the environment win.
func WithEnvFile(filenames ...string) (ConfigProvider, error) {
	if err := env.LoadDotEnv(filenames...); err != nil {
		return nil, err
	}
	return WithEnvConfigs(), nil
}

type testOverrides struct {
	slippageBps              uint64
	computeUnitLimit         uint64
	computeUnitPrice         uint64
	commitment               string
	skipPreflight            bool
	maxSendRetries           uint64
	confirmationTimeout      time.Duration
	confirmationPollInterval time.Duration
	enableMemo               bool
	maxBuysPerMintPerMinute  uint64
}

func defaultTestOverrides() *testOverrides {
	return &testOverrides{
		slippageBps:              defaultSlippageBps,
		computeUnitLimit:         defaultComputeUnitLimit,
		computeUnitPrice:         defaultComputeUnitPrice,
		commitment:               defaultCommitment,
		skipPreflight:            defaultSkipPreflight,
		maxSendRetries:           defaultMaxSendRetries,
		confirmationTimeout:      time.Second,
		confirmationPollInterval: 5 * time.Millisecond,
		enableMemo:               defaultEnableMemo,
		maxBuysPerMintPerMinute:  defaultMaxBuysPerMintPerMinute,
	}
}

func withManualTestOverrides(overrides *testOverrides) ConfigProvider {
	return func() *conf {
		return &conf{
			slippageBps:              wrapper.NewUint64Config(memory.NewConfig(overrides.slippageBps), defaultSlippageBps),
			computeUnitLimit:         wrapper.NewUint64Config(memory.NewConfig(overrides.computeUnitLimit), defaultComputeUnitLimit),
			computeUnitPrice:         wrapper.NewUint64Config(memory.NewConfig(overrides.computeUnitPrice), defaultComputeUnitPrice),
			commitment:               wrapper.NewStringConfig(memory.NewConfig(overrides.commitment), defaultCommitment),
			skipPreflight:            wrapper.NewBoolConfig(memory.NewConfig(overrides.skipPreflight), defaultSkipPreflight),
			maxSendRetries:           wrapper.NewUint64Config(memory.NewConfig(overrides.maxSendRetries), defaultMaxSendRetries),
			confirmationTimeout:      wrapper.NewDurationConfig(memory.NewConfig(overrides.confirmationTimeout), defaultConfirmationTimeout),
			confirmationPollInterval: wrapper.NewDurationConfig(memory.NewConfig(overrides.confirmationPollInterval), defaultConfirmationPollInterval),
			enableMemo:               wrapper.NewBoolConfig(memory.NewConfig(overrides.enableMemo), defaultEnableMemo),
			maxBuysPerMintPerMinute:  wrapper.NewUint64Config(memory.NewConfig(overrides.maxBuysPerMintPerMinute), defaultMaxBuysPerMintPerMinute),
		}
	}
}
