package syncer

import (
	"fmt"
	"sort"
)

// Registration describes one data type: how to build its strategy and which data types must run before it.
type Registration struct {
	DataType      string
	Prerequisites []string
	New           func(d Deps) Strategy
}

// Registry maps data types to strategies. Registration order is the default run order.
type Registry struct {
	entries map[string]Registration
	order   []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]Registration)}
}

// DefaultRegistry registers every built-in strategy.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, reg := range []Registration{
		{DataType: DataTypeSite, New: NewSiteStrategy},
		{DataType: DataTypeEquipment, New: NewEquipmentStrategy},
		{DataType: DataTypeEnergy, New: NewEnergyStrategy},
		{DataType: DataTypePower, New: NewPowerStrategy},
		{DataType: DataTypeStorage, New: NewStorageStrategy},
		{DataType: DataTypeMeter, New: NewMeterStrategy},
		{DataType: DataTypeEnvironmental, New: NewEnvironmentalStrategy},
		{DataType: DataTypeAlert, New: NewAlertStrategy},
		{DataType: DataTypeInventory, New: NewInventoryStrategy},
		{DataType: DataTypeInverterTelemetry, Prerequisites: []string{DataTypeEquipment}, New: NewInverterTelemetryStrategy},
		{DataType: DataTypeOptimizerTelemetry, Prerequisites: []string{DataTypeEquipment}, New: NewOptimizerTelemetryStrategy},
	} {
		if err := r.Register(reg); err != nil {
			panic(err)
		}
	}
	return r
}

// Register adds a data type. Registering a data type twice is an error.
func (r *Registry) Register(reg Registration) error {
	if reg.DataType == "" || reg.New == nil {
		return fmt.Errorf("registration needs a data type and a constructor")
	}
	if _, exists := r.entries[reg.DataType]; exists {
		return fmt.Errorf("data type %q already registered", reg.DataType)
	}
	r.entries[reg.DataType] = reg
	r.order = append(r.order, reg.DataType)
	return nil
}

// Get returns the registration of a data type.
func (r *Registry) Get(dataType string) (Registration, bool) {
	reg, ok := r.entries[dataType]
	return reg, ok
}

// DataTypes returns the registered data types in registration order.
func (r *Registry) DataTypes() []string {
	return append([]string(nil), r.order...)
}

// Order returns the data types sorted so every prerequisite runs first.
// Ties keep registration order. Unknown prerequisites and cycles are errors.
func (r *Registry) Order() ([]string, error) {
	position := make(map[string]int, len(r.order))
	for i, dt := range r.order {
		position[dt] = i
	}

	indegree := make(map[string]int, len(r.order))
	dependents := make(map[string][]string, len(r.order))
	for _, dt := range r.order {
		for _, pre := range r.entries[dt].Prerequisites {
			if _, ok := r.entries[pre]; !ok {
				return nil, fmt.Errorf("data type %q requires unregistered data type %q", dt, pre)
			}
			indegree[dt]++
			dependents[pre] = append(dependents[pre], dt)
		}
	}

	var ready []string
	for _, dt := range r.order {
		if indegree[dt] == 0 {
			ready = append(ready, dt)
		}
	}

	out := make([]string, 0, len(r.order))
	for len(ready) > 0 {
		sort.Slice(ready, func(i, j int) bool { return position[ready[i]] < position[ready[j]] })
		dt := ready[0]
		ready = ready[1:]
		out = append(out, dt)
		for _, next := range dependents[dt] {
			indegree[next]--
			if indegree[next] == 0 {
				ready = append(ready, next)
			}
		}
	}

	if len(out) != len(r.order) {
		return nil, fmt.Errorf("prerequisite cycle among data types")
	}
	return out, nil
}
