// Package adapter exposes devices to a host through integer handles and
// flat float buffers, the way a network solver drives user models.
package adapter

import (
	"fmt"

	"github.com/san-kum/indmach/internal/dynamo"
	"github.com/san-kum/indmach/internal/machine"
	"github.com/san-kum/indmach/internal/seq"
)

// Device is the contract a user model offers its host.
type Device interface {
	Update()
	InitStateVars(vabc, iabc seq.Vector) float64
	Calc(vabc seq.Vector, iabc *seq.Vector)
	Integrate()
	Edit(s string) error
	Outputs() []machine.Output
}

// Factory builds a device bound to the host's generator and solution
// variables.
type Factory func(gen *dynamo.GenVars, sol *dynamo.Solution) Device

// BufferLen is the length of a flat three-phase buffer: interleaved real
// and imaginary parts for phases a, b and c.
const BufferLen = 6

type messenger interface {
	SetMessageFunc(fn func(string))
}

type debugger interface {
	DebugEnabled() bool
}

// slot pairs a device with the generator variables only it writes.
type slot struct {
	dev Device
	gen *dynamo.GenVars
}

// Table owns the device instances of one host. Handles start at 1 and are
// never reused, so a stale handle cannot reach a newer device. Every device
// gets its own copy of the template generator variables; the solution
// variables are shared.
type Table struct {
	factory Factory
	gen     *dynamo.GenVars
	sol     *dynamo.Solution
	msg     func(string)

	slots  []*slot
	active int
}

func NewTable(factory Factory, gen *dynamo.GenVars, sol *dynamo.Solution) *Table {
	return &Table{factory: factory, gen: gen, sol: sol}
}

// SetMessageFunc sets where devices added from now on send user messages.
func (t *Table) SetMessageFunc(fn func(string)) { t.msg = fn }

// Add creates a device, applies edit to it and makes it active.
func (t *Table) Add(edit string) (int, error) {
	g := *t.gen
	d := t.factory(&g, t.sol)
	if m, ok := d.(messenger); ok && t.msg != nil {
		m.SetMessageFunc(t.msg)
	}
	if edit != "" {
		if err := d.Edit(edit); err != nil {
			return 0, fmt.Errorf("new device: %w", err)
		}
	}
	t.slots = append(t.slots, &slot{dev: d, gen: &g})
	t.active = len(t.slots)
	return t.active, nil
}

// Select makes handle h active and returns it, or returns 0 and leaves the
// selection alone if h names no live device.
func (t *Table) Select(h int) int {
	if t.lookup(h) == nil {
		return 0
	}
	t.active = h
	return h
}

func (t *Table) Delete(h int) {
	if t.lookup(h) == nil {
		return
	}
	t.slots[h-1] = nil
	if t.active == h {
		t.active = 0
	}
}

func (t *Table) Active() int { return t.active }

func (t *Table) Len() int {
	n := 0
	for _, sl := range t.slots {
		if sl != nil {
			n++
		}
	}
	return n
}

func (t *Table) slot(h int) *slot {
	if h < 1 || h > len(t.slots) {
		return nil
	}
	return t.slots[h-1]
}

func (t *Table) lookup(h int) Device {
	if sl := t.slot(h); sl != nil {
		return sl.dev
	}
	return nil
}

func (t *Table) current() Device { return t.lookup(t.active) }

// GenVars returns the generator variables of device h, or nil.
func (t *Table) GenVars(h int) *dynamo.GenVars {
	if sl := t.slot(h); sl != nil {
		return sl.gen
	}
	return nil
}

// ActiveGenVars returns the active device's generator variables, or nil.
func (t *Table) ActiveGenVars() *dynamo.GenVars { return t.GenVars(t.active) }

// Debug reports whether the active device asked for debug output.
func (t *Table) Debug() bool {
	d, ok := t.current().(debugger)
	return ok && d.DebugEnabled()
}

// Device returns the active device, or nil.
func (t *Table) Device() Device { return t.current() }

func (t *Table) Edit(s string) error {
	d := t.current()
	if d == nil {
		return dynamo.ErrNoActiveModel
	}
	return d.Edit(s)
}

func (t *Table) UpdateModel() {
	if d := t.current(); d != nil {
		d.Update()
	}
}

// Init seeds the active device's state from flat phase voltages and
// currents and returns the initial speed deviation.
func (t *Table) Init(v, i []float64) float64 {
	d := t.current()
	if d == nil {
		return 0
	}
	return d.InitStateVars(seq.Unflatten(v), seq.Unflatten(i))
}

// Calc reads flat phase voltages from v and writes phase currents into i.
func (t *Table) Calc(v, i []float64) {
	d := t.current()
	if d == nil {
		return
	}
	var iabc seq.Vector
	d.Calc(seq.Unflatten(v), &iabc)
	iabc.Flatten(i)
}

func (t *Table) Integrate() {
	if d := t.current(); d != nil {
		d.Integrate()
	}
}

func (t *Table) NumVars() int {
	d := t.current()
	if d == nil {
		return 0
	}
	return len(d.Outputs())
}

func (t *Table) VarNames() []string {
	d := t.current()
	if d == nil {
		return nil
	}
	outs := d.Outputs()
	names := make([]string, len(outs))
	for k, o := range outs {
		names[k] = o.Name
	}
	return names
}

// GetAllVars copies the active device's outputs into buf and returns how
// many were written.
func (t *Table) GetAllVars(buf []float64) int {
	d := t.current()
	if d == nil {
		return 0
	}
	outs := d.Outputs()
	n := min(len(outs), len(buf))
	for k := 0; k < n; k++ {
		buf[k] = outs[k].Value
	}
	return n
}

// Outputs returns the active device's named outputs.
func (t *Table) Outputs() []machine.Output {
	d := t.current()
	if d == nil {
		return nil
	}
	return d.Outputs()
}
