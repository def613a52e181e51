package model

// All returns every model managed by migrations, in dependency order.
func All() []any {
	return []any{
		&Site{},
		&Equipment{},
		&EnergyReading{},
		&PowerReading{},
		&PowerFlow{},
		&Battery{},
		&Meter{},
		&MeterReading{},
		&Alert{},
		&EnvironmentalBenefits{},
		&InventoryItem{},
		&InverterTelemetry{},
		&OptimizerTelemetry{},
		&SyncMetadata{},
		&PushSubscription{},
	}
}
