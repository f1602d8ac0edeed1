package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_CountersAndGauges(t *testing.T) {
	m, err := InitMetrics("")
	require.NoError(t, err)
	defer m.Close()

	require.NoError(t, m.Incr("clients_created"))
	require.NoError(t, m.Incr("clients_created"))
	require.NoError(t, m.Add("clients_imported", 5))
	require.NoError(t, m.SetGauge("registry_clientes", 7))

	assert.Equal(t, int64(2), m.Counter("clients_created"))
	assert.Equal(t, int64(5), m.Counter("clients_imported"))
	assert.Equal(t, int64(7), m.Gauge("registry_clientes"))
	assert.Zero(t, m.Counter("unknown"))

	points, err := m.Query("clients_created", time.Now().Add(-time.Minute))
	require.NoError(t, err)
	require.NotEmpty(t, points)
	assert.Equal(t, float64(2), points[len(points)-1].Value)
}

func TestMetrics_QueryUnknown(t *testing.T) {
	m, err := InitMetrics("")
	require.NoError(t, err)
	defer m.Close()

	points, err := m.Query("nothing", time.Now().Add(-time.Minute))
	require.NoError(t, err)
	assert.Empty(t, points)
}

func TestMetrics_OnDisk(t *testing.T) {
	m, err := InitMetrics(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, m.SetGauge("system_memuse", 128))
	assert.NoError(t, m.Close())
}
