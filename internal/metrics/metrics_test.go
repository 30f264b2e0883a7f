package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestSetRunState(t *testing.T) {
	SetRunState("running")
	assert.Equal(t, 1.0, testutil.ToFloat64(RunState.WithLabelValues("running")))
	assert.Equal(t, 0.0, testutil.ToFloat64(RunState.WithLabelValues("setup")))

	SetRunState("finished")
	assert.Equal(t, 0.0, testutil.ToFloat64(RunState.WithLabelValues("running")))
	assert.Equal(t, 1.0, testutil.ToFloat64(RunState.WithLabelValues("finished")))
}
