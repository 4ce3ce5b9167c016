package telemetry

import (
	"context"
	"sort"
	"strings"

	"github.com/grafana/pyroscope-go"
)

// Profiling label keys
const (
	ProfilingLabelOperation = "operation"
	ProfilingLabelChannel   = "channel"
	ProfilingLabelStore     = "store"
	ProfilingLabelMethod    = "method"
	ProfilingLabelRoute     = "route"
)

// Credit operations used as profiling label values
const (
	OperationRegisterPayment = "register_payment"
	OperationSettleDirect    = "settle_direct"
	OperationAllocate        = "allocate"
	OperationExportPortfolio = "export_portfolio"
)

// MaxLabelValueLength truncates label values
const MaxLabelValueLength = 128

// highCardinalityLabels are dropped before tagging
var highCardinalityLabels = map[string]bool{
	"client_id":  true,
	"user_id":    true,
	"request_id": true,
	"trace_id":   true,
}

// WithProfilingLabels runs fn with Pyroscope labels attached to its goroutine.
func WithProfilingLabels(ctx context.Context, labels map[string]string, fn func(context.Context)) {
	pairs := sanitizeLabels(labels)
	if len(pairs) == 0 {
		fn(ctx)
		return
	}
	pyroscope.TagWrapper(ctx, pyroscope.Labels(pairs...), fn)
}

// CreditOperationLabels labels one credit operation on a channel.
func CreditOperationLabels(operation, channel string) map[string]string {
	labels := map[string]string{ProfilingLabelOperation: operation}
	if channel != "" {
		labels[ProfilingLabelChannel] = channel
	}
	return labels
}

// sanitizeLabels returns sorted key/value pairs with empty and high cardinality labels removed.
func sanitizeLabels(labels map[string]string) []string {
	keys := make([]string, 0, len(labels))
	for k, v := range labels {
		if strings.TrimSpace(k) == "" || v == "" || highCardinalityLabels[k] {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys)*2)
	for _, k := range keys {
		v := labels[k]
		if len(v) > MaxLabelValueLength {
			v = v[:MaxLabelValueLength]
		}
		pairs = append(pairs, k, v)
	}
	return pairs
}
