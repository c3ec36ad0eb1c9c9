package copytrade

import (
	"context"
	"time"

	"github.com/code-payments/copy-trader/pkg/metrics"
	"github.com/code-payments/copy-trader/pkg/solana"
)

const (
	metricsStructName  = "copytrade.executor"
	buyTransactionName = "CopyTrade/Buy"

	buySubmittedCountMetricName     = "CopyTrade/BuySubmitted"
	buyConfirmationMetricName       = "CopyTrade/BuyConfirmationLatency"
	buyFailedCountMetricName        = "CopyTrade/BuyFailed"
	buySubmittedEventName           = "CopyTradeBuySubmitted"
	buyConfirmationTimeoutEventName = "CopyTradeBuyConfirmationTimeout"
)

func recordBuySubmittedEvent(ctx context.Context, req *BuyRequest, result *BuyResult) {
	metrics.RecordCount(ctx, buySubmittedCountMetricName, 1)
	metrics.RecordEvent(ctx, buySubmittedEventName, map[string]interface{}{
		"mint":             solana.AddressToText(req.Mint),
		"sol_in":           result.Quote.SolIn,
		"tokens_out":       result.Quote.TokensOut,
		"min_tokens_out":   result.Quote.MinTokensOut,
		"source_signature": req.SourceSignature,
		"signature":        result.Signature.String(),
	})
}

func recordConfirmationLatency(ctx context.Context, latency time.Duration) {
	metrics.RecordDuration(ctx, buyConfirmationMetricName, latency)
}

func recordConfirmationTimeoutEvent(ctx context.Context, sig solana.Signature, timeout time.Duration) {
	metrics.RecordEvent(ctx, buyConfirmationTimeoutEventName, map[string]interface{}{
		"signature": sig.String(),
		"timeout":   timeout.String(),
	})
}

func recordBuyFailed(ctx context.Context) {
	metrics.RecordCount(ctx, buyFailedCountMetricName, 1)
}
