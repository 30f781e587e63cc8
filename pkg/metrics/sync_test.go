package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewSyncMetrics_NilWhenDisabled(t *testing.T) {
	enabled.Store(false)
	assert.Nil(t, NewSyncMetrics())
}

func TestObserveDrive_NilMetricsIsNoop(t *testing.T) {
	assert.NotPanics(t, func() {
		ObserveDrive(nil, 3, true, true)
		RecordHeadOffsetLag(nil, 100)
	})
}
