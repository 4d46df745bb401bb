package adapter

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/indmach/internal/dynamo"
	"github.com/san-kum/indmach/internal/machine"
	"github.com/san-kum/indmach/internal/seq"
)

func newTestTable() (*Table, *dynamo.Solution) {
	gen := dynamo.NewGenVars(2.4, 1000, 900, 60)
	sol := &dynamo.Solution{Mode: dynamo.ModeSnapshot, H: 0.001}
	factory := func(gen *dynamo.GenVars, sol *dynamo.Solution) Device {
		return machine.New(machine.DefaultParams(), gen, sol)
	}
	return NewTable(factory, gen, sol), sol
}

func ratedBuffer() []float64 {
	buf := make([]float64, BufferLen)
	seq.Balanced(2400/math.Sqrt(3), 0, 0, 0).Flatten(buf)
	return buf
}

func TestTableHandles(t *testing.T) {
	tbl, _ := newTestTable()

	h1, err := tbl.Add("")
	require.NoError(t, err)
	h2, err := tbl.Add("slip=0.01")
	require.NoError(t, err)

	assert.Equal(t, 1, h1)
	assert.Equal(t, 2, h2)
	assert.Equal(t, h2, tbl.Active())

	assert.Equal(t, h1, tbl.Select(h1))
	assert.Equal(t, h1, tbl.Active())

	tbl.Delete(h1)
	assert.Equal(t, 0, tbl.Active())
	assert.Equal(t, 0, tbl.Select(h1))
	assert.Equal(t, 1, tbl.Len())

	h3, err := tbl.Add("")
	require.NoError(t, err)
	assert.Equal(t, 3, h3, "deleted handles are not reused")

	assert.Equal(t, 0, tbl.Select(99))
	assert.Equal(t, h3, tbl.Active())
}

func TestTableAddRejectsBadEdit(t *testing.T) {
	tbl, _ := newTestTable()

	_, err := tbl.Add("nosuch=1")
	require.ErrorIs(t, err, dynamo.ErrUnknownParam)
	assert.Equal(t, 0, tbl.Len())
	assert.Equal(t, 0, tbl.Active())
}

func TestTableNoActive(t *testing.T) {
	tbl, _ := newTestTable()

	require.ErrorIs(t, tbl.Edit("slip=0.01"), dynamo.ErrNoActiveModel)

	i := make([]float64, BufferLen)
	tbl.Calc(ratedBuffer(), i)
	tbl.Integrate()
	tbl.UpdateModel()

	assert.Equal(t, make([]float64, BufferLen), i)
	assert.Zero(t, tbl.Init(ratedBuffer(), i))
	assert.Zero(t, tbl.NumVars())
	assert.Nil(t, tbl.VarNames())
	assert.Zero(t, tbl.GetAllVars(make([]float64, 4)))
}

func TestTableCalc(t *testing.T) {
	tbl, _ := newTestTable()
	_, err := tbl.Add("slipoption=fixed")
	require.NoError(t, err)

	v := ratedBuffer()
	i := make([]float64, BufferLen)
	tbl.Calc(v, i)

	iabc := seq.Unflatten(i)
	p := seq.Power(seq.Unflatten(v), iabc)
	assert.InDelta(t, 900700, real(p), 50)

	var sum complex128
	for _, c := range iabc {
		sum += c
	}
	assert.InDelta(t, 0, math.Hypot(real(sum), imag(sum)), 1e-9)
}

func TestTableInit(t *testing.T) {
	tbl, _ := newTestTable()
	_, err := tbl.Add("slipoption=fixed")
	require.NoError(t, err)

	v := ratedBuffer()
	i := make([]float64, BufferLen)
	tbl.Calc(v, i)

	speed := tbl.Init(v, i)
	assert.InDelta(t, -0.007*2*math.Pi*60, speed, 1e-9)
}

func TestTableVars(t *testing.T) {
	tbl, _ := newTestTable()
	_, err := tbl.Add("")
	require.NoError(t, err)

	names := tbl.VarNames()
	require.Len(t, names, tbl.NumVars())
	assert.Equal(t, "Slip", names[0])

	buf := make([]float64, tbl.NumVars())
	n := tbl.GetAllVars(buf)
	assert.Equal(t, len(buf), n)
	assert.Equal(t, 0.007, buf[0])

	short := make([]float64, 3)
	assert.Equal(t, 3, tbl.GetAllVars(short))
}

func TestTableEditUpdatesActive(t *testing.T) {
	tbl, _ := newTestTable()
	_, err := tbl.Add("")
	require.NoError(t, err)

	require.NoError(t, tbl.Edit("slip=0.02"))
	buf := make([]float64, 1)
	tbl.GetAllVars(buf)
	assert.Equal(t, 0.02, buf[0])
}

func TestTableDevicesKeepOwnGenVars(t *testing.T) {
	tbl, _ := newTestTable()

	h1, err := tbl.Add("")
	require.NoError(t, err)
	h2, err := tbl.Add("slip=0.05 H=3")
	require.NoError(t, err)
	require.Equal(t, h1, tbl.Select(h1))

	w0 := 2 * math.Pi * 60
	g1 := tbl.ActiveGenVars()
	require.NotNil(t, g1)
	assert.Same(t, tbl.GenVars(h1), g1)
	assert.InDelta(t, -0.007*w0, g1.Speed, 1e-9)
	assert.Equal(t, 0.02, g1.H)

	g2 := tbl.GenVars(h2)
	require.NotNil(t, g2)
	assert.NotSame(t, g1, g2)
	assert.InDelta(t, -0.05*w0, g2.Speed, 1e-9)
	assert.Equal(t, 3.0, g2.H)

	assert.Equal(t, 0.0, tbl.gen.Speed, "template is never written")
	assert.Nil(t, tbl.GenVars(99))

	tbl.Delete(h1)
	assert.Nil(t, tbl.ActiveGenVars())
}

func TestTableForwardsMessagesAndDebug(t *testing.T) {
	tbl, _ := newTestTable()
	var got []string
	tbl.SetMessageFunc(func(s string) { got = append(got, s) })

	_, err := tbl.Add("help")
	require.NoError(t, err)
	assert.Equal(t, []string{machine.HelpText}, got)
	assert.False(t, tbl.Debug())

	require.NoError(t, tbl.Edit("option=debug"))
	assert.True(t, tbl.Debug())
}
