package imu

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stepSensor struct {
	n float32
}

func (s *stepSensor) AccelX() float32 { s.n++; return s.n }
func (s *stepSensor) AccelY() float32 { s.n++; return s.n }
func (s *stepSensor) AccelZ() float32 { s.n++; return s.n }
func (s *stepSensor) GyroX() float32  { s.n++; return s.n }
func (s *stepSensor) GyroY() float32  { s.n++; return s.n }
func (s *stepSensor) GyroZ() float32  { s.n++; return s.n }
func (s *stepSensor) TempC() float32  { return 25 }

func TestSampler_ReadOrder(t *testing.T) {
	s := NewSampler(&stepSensor{}, func() uint32 { return 42 }, NewBuffer())
	got := s.Read()
	assert.Equal(t, uint32(42), got.Timestamp)
	assert.Equal(t, [AxesPerSample]float32{1, 2, 3, 4, 5, 6}, got.Axes())
}

func TestSampler_TickFillsBatch(t *testing.T) {
	var ms uint32
	buf := NewBuffer()
	s := NewSampler(&stepSensor{}, func() uint32 { ms += 125; return ms }, buf)

	for i := 0; i < BufferSlots; i++ {
		require.False(t, buf.Ready())
		require.NoError(t, s.Tick(context.Background()))
	}
	require.True(t, buf.Ready())

	batch, ok := buf.Snapshot(0)
	require.True(t, ok)
	for i, smp := range batch {
		assert.Equal(t, uint32(125*(i+1)), smp.Timestamp)
		assert.Equal(t, float32(i*AxesPerSample+1), smp.Accel[0])
	}
}
