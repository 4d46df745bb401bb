package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/indmach/internal/adapter"
	"github.com/san-kum/indmach/internal/dynamo"
	"github.com/san-kum/indmach/internal/machine"
	"github.com/san-kum/indmach/internal/metrics"
)

// ModelFactory binds parameters to a device factory. The model type is
// fixed when the device is created and never changes afterwards.
type ModelFactory func(p machine.Params) adapter.Factory

type Registry struct {
	models map[string]ModelFactory
}

func NewRegistry() *Registry {
	r := &Registry{
		models: make(map[string]ModelFactory),
	}

	r.models["indmach012"] = func(p machine.Params) adapter.Factory {
		return func(gen *dynamo.GenVars, sol *dynamo.Solution) adapter.Device {
			return machine.New(p, gen, sol)
		}
	}

	return r
}

func (r *Registry) Register(name string, fn ModelFactory) {
	r.models[name] = fn
}

func (r *Registry) GetModel(name string) (ModelFactory, error) {
	fn, ok := r.models[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, dynamo.ErrUnknownModel)
	}
	return fn, nil
}

func (r *Registry) ListModels() []string {
	names := make([]string, 0, len(r.models))
	for name := range r.models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) DefaultMetrics(p machine.Params) []dynamo.Metric {
	return metrics.Default(p.MaxSlip)
}
