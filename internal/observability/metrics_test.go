package observability

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWorld struct {
	version uint64
	dirty   bool
}

func (f *fakeWorld) Size() int       { return 16 }
func (f *fakeWorld) Version() uint64 { return f.version }
func (f *fakeWorld) Dirty() bool     { return f.dirty }

func gauges(t *testing.T, reg *prometheus.Registry) map[string]float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)

	values := make(map[string]float64)
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			values[mf.GetName()] = m.GetGauge().GetValue()
		}
	}
	return values
}

func TestMetricsExporter_Update(t *testing.T) {
	reg := prometheus.NewRegistry()
	source := &fakeWorld{version: 3, dirty: true}

	me, err := NewMetricsExporter(source, reg)
	require.NoError(t, err)

	me.Update()
	values := gauges(t, reg)
	assert.Equal(t, 3.0, values["voxel_world_version"])
	assert.Equal(t, 1.0, values["voxel_world_dirty"])
	assert.Equal(t, 16.0, values["voxel_world_size"])

	source.version = 4
	source.dirty = false
	me.Update()
	values = gauges(t, reg)
	assert.Equal(t, 4.0, values["voxel_world_version"])
	assert.Equal(t, 0.0, values["voxel_world_dirty"])
}

func TestMetricsExporter_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewMetricsExporter(&fakeWorld{}, reg)
	require.NoError(t, err)

	_, err = NewMetricsExporter(&fakeWorld{}, reg)
	assert.Error(t, err)
}

func TestMetricsExporter_StartStop(t *testing.T) {
	me, err := NewMetricsExporter(&fakeWorld{version: 1}, prometheus.NewRegistry())
	require.NoError(t, err)

	me.Start("")
	assert.NoError(t, me.Stop(context.Background()))
}
