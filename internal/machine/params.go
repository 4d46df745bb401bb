package machine

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/san-kum/indmach/internal/dynamo"
)

// Params are the per-unit nameplate constants of the machine, on the
// machine's own kV/kVA base. ModelName is the free-form tag the host edits
// under "pymodel"; Debug is toggled by the option key and is not a
// parameter of the circuit.
type Params struct {
	ModelName  string  `yaml:"pymodel,omitempty"`
	H          float64 `yaml:"h"`
	D          float64 `yaml:"d"`
	PuRs       float64 `yaml:"purs"`
	PuXs       float64 `yaml:"puxs"`
	PuRr       float64 `yaml:"purr"`
	PuXr       float64 `yaml:"puxr"`
	PuXm       float64 `yaml:"puxm"`
	Slip       float64 `yaml:"slip"`
	MaxSlip    float64 `yaml:"maxslip"`
	SlipOption string  `yaml:"slipoption"`
	Debug      bool    `yaml:"debug,omitempty"`
}

func DefaultParams() Params {
	return Params{
		H:          0.02,
		D:          0.02,
		PuRs:       0.0053,
		PuXs:       0.106,
		PuRr:       0.007,
		PuXr:       0.12,
		PuXm:       4.0,
		Slip:       0.007,
		MaxSlip:    0.1,
		SlipOption: "variable",
	}
}

// FixedSlip reports whether the slip option selects a fixed slip.
func (p Params) FixedSlip() bool {
	return len(p.SlipOption) > 0 && (p.SlipOption[0] == 'f' || p.SlipOption[0] == 'F')
}

// HelpText is reported when an edit carries a bare "help".
const HelpText = "option={Debug | NoDebug }\nHelp: this help message."

// paramNames is the edit order; positional values fill it left to right.
var paramNames = []string{"pymodel", "H", "D", "puRs", "puXs", "puRr", "puXr", "puXm", "slip", "MaxSlip", "slipOption"}

const (
	modelNamePos  = 0
	slipOptionPos = 10
)

var paramIndex = buildIndex(paramNames)

// buildIndex maps every lowercase name and each of its prefixes to the
// parameter position. A prefix shared by several names belongs to the one
// registered first.
func buildIndex(names []string) map[string]int {
	idx := make(map[string]int)
	for i, name := range names {
		name = strings.ToLower(name)
		idx[name] = i
		for n := 1; n < len(name); n++ {
			if _, ok := idx[name[:n]]; !ok {
				idx[name[:n]] = i
			}
		}
	}
	return idx
}

func (p *Params) field(i int) *float64 {
	switch i {
	case 1:
		return &p.H
	case 2:
		return &p.D
	case 3:
		return &p.PuRs
	case 4:
		return &p.PuXs
	case 5:
		return &p.PuRr
	case 6:
		return &p.PuXr
	case 7:
		return &p.PuXm
	case 8:
		return &p.Slip
	case 9:
		return &p.MaxSlip
	}
	return nil
}

func (p *Params) set(i int, value string) error {
	switch i {
	case modelNamePos:
		p.ModelName = value
		return nil
	case slipOptionPos:
		p.SlipOption = value
		return nil
	}
	f := p.field(i)
	if f == nil {
		return fmt.Errorf("parameter position %d: %w", i+1, dynamo.ErrUnknownParam)
	}
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("%s=%q: %w", paramNames[i], value, err)
	}
	*f = v
	return nil
}

// setOption applies option=debug or option=nodebug. Only the first letter
// counts; anything else leaves the flag alone.
func (p *Params) setOption(value string) {
	if value == "" {
		return
	}
	switch value[0] {
	case 'd', 'D':
		p.Debug = true
	case 'n', 'N':
		p.Debug = false
	}
}

// SetParam assigns one parameter by name or unique-enough prefix.
func (p *Params) SetParam(name, value string) error {
	if strings.EqualFold(name, "option") {
		p.setOption(value)
		return nil
	}
	i, ok := paramIndex[strings.ToLower(name)]
	if !ok {
		return fmt.Errorf("%s: %w", name, dynamo.ErrUnknownParam)
	}
	return p.set(i, value)
}

// GetParams returns the numeric parameters keyed by their edit names.
func (p *Params) GetParams() map[string]float64 {
	out := make(map[string]float64, len(paramNames)-2)
	for i, name := range paramNames {
		if f := p.field(i); f != nil {
			out[name] = *f
		}
	}
	return out
}

// EditResult says what an edit touched. Changed is set only when a
// parameter was assigned; option and help leave it false.
type EditResult struct {
	Changed bool
	Help    bool
}

// Apply parses a flat edit string such as "puRs=0.01 slip=0.02" into p
// and reports whether any parameter was assigned.
func (p *Params) Apply(edit string) (bool, error) {
	res, err := p.ApplyEdit(edit)
	return res.Changed, err
}

// ApplyEdit is Apply with the option and help keys reported. Pairs may be
// separated by spaces or commas; a bare value fills the parameter after
// the previous one, and a bare "help" asks for HelpText without moving
// the position. p is left untouched on error.
func (p *Params) ApplyEdit(edit string) (EditResult, error) {
	next := *p
	var res EditResult
	pos := -1

	fields := strings.FieldsFunc(edit, func(r rune) bool {
		return r == ' ' || r == '\t' || r == ',' || r == '\n'
	})
	for _, tok := range fields {
		name, value, named := strings.Cut(tok, "=")
		switch {
		case named && strings.EqualFold(name, "option"):
			next.setOption(value)
			pos = len(paramNames)
			continue
		case named:
			i, ok := paramIndex[strings.ToLower(name)]
			if !ok {
				return EditResult{}, fmt.Errorf("%s: %w", name, dynamo.ErrUnknownParam)
			}
			pos = i
		case strings.EqualFold(name, "help"):
			res.Help = true
			continue
		default:
			value = name
			pos++
			if pos >= len(paramNames) {
				return EditResult{}, fmt.Errorf("positional value %q: %w", value, dynamo.ErrUnknownParam)
			}
		}
		if err := next.set(pos, value); err != nil {
			return EditResult{}, err
		}
		res.Changed = true
	}

	*p = next
	return res, nil
}
