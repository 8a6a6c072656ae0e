package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/parleyhq/parley/pkg/domain"
)

func TestHooksFeedCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	hooks := m.Hooks()

	hooks.EmitTurn("c1")
	hooks.EmitTurn("c1")
	hooks.EmitFlowStarted("order_pizza")
	hooks.EmitFlowFinished("order_pizza", domain.FlowCompleted)
	hooks.EmitActionError("orders.place")
	hooks.EmitConfirmationRetry("order_pizza", "order_ok")
	hooks.EmitConfirmationExhausted("order_pizza")
	hooks.EmitHandoff("c1")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.turns))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.flowsStarted.WithLabelValues("order_pizza")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.flowsFinished.WithLabelValues("order_pizza", "completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.actionErrors.WithLabelValues("orders.place")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.confirmRetries.WithLabelValues("order_pizza")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.confirmExhausted.WithLabelValues("order_pizza")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.handoffs))
}
