package metrics

import (
	"math"

	"github.com/san-kum/indmach/internal/dynamo"
)

// MinVoltage tracks the lowest positive-sequence terminal voltage, in per
// unit as sampled.
type MinVoltage struct {
	name    string
	min     float64
	samples int
}

func NewMinVoltage() *MinVoltage {
	return &MinVoltage{name: "min_voltage_pu"}
}

func (m *MinVoltage) Name() string { return m.name }

func (m *MinVoltage) Observe(s dynamo.Sample, dt float64) {
	if m.samples == 0 {
		m.min = s.V1
	}
	m.min = math.Min(m.min, s.V1)
	m.samples++
}

func (m *MinVoltage) Value() float64 { return m.min }

func (m *MinVoltage) Reset() {
	m.min = 0
	m.samples = 0
}

// MeanCurrent is the average positive-sequence stator current magnitude.
type MeanCurrent struct {
	name    string
	sum     float64
	samples int
}

func NewMeanCurrent() *MeanCurrent {
	return &MeanCurrent{name: "mean_is1"}
}

func (c *MeanCurrent) Name() string { return c.name }

func (c *MeanCurrent) Observe(s dynamo.Sample, dt float64) {
	c.sum += s.Is1
	c.samples++
}

func (c *MeanCurrent) Value() float64 {
	if c.samples == 0 {
		return 0
	}
	return c.sum / float64(c.samples)
}

func (c *MeanCurrent) Reset() {
	c.sum = 0
	c.samples = 0
}
