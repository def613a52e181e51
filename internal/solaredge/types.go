package solaredge

import (
	"bytes"

	"github.com/goccy/go-json"
)

// List decodes a collection field that the API returns either as an array
// or, for single elements, as a bare object.
type List[T any] []T

// UnmarshalJSON implements json.Unmarshaler.
func (l *List[T]) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*l = nil
		return nil
	}
	if data[0] == '[' {
		var items []T
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		*l = items
		return nil
	}
	var item T
	if err := json.Unmarshal(data, &item); err != nil {
		return err
	}
	*l = List[T]{item}
	return nil
}

// Site is an entry of the site list or the site details endpoint.
type Site struct {
	ID               int64           `json:"id"`
	Name             string          `json:"name"`
	AccountID        *int64          `json:"accountId"`
	Status           string          `json:"status"`
	PeakPower        *float64        `json:"peakPower"`
	LastUpdateTime   string          `json:"lastUpdateTime"`
	InstallationDate string          `json:"installationDate"`
	Currency         string          `json:"currency"`
	Notes            string          `json:"notes"`
	Type             string          `json:"type"`
	Location         Location        `json:"location"`
	PrimaryModule    PrimaryModule   `json:"primaryModule"`
	PublicSettings   json.RawMessage `json:"publicSettings"`
}

// Location is the postal location of a site.
type Location struct {
	Country  string `json:"country"`
	State    string `json:"state"`
	City     string `json:"city"`
	Address  string `json:"address"`
	Address2 string `json:"address2"`
	Zip      string `json:"zip"`
	TimeZone string `json:"timeZone"`
}

// PrimaryModule describes the PV modules of a site.
type PrimaryModule struct {
	ManufacturerName string   `json:"manufacturerName"`
	ModelName        string   `json:"modelName"`
	MaximumPower     *float64 `json:"maximumPower"`
}

// PublicSettings is the decoded form of Site.PublicSettings.
type PublicSettings struct {
	IsPublic *bool  `json:"isPublic"`
	Name     string `json:"name"`
}

// Reporter is one device of the equipment list.
type Reporter struct {
	Name                string `json:"name"`
	Manufacturer        string `json:"manufacturer"`
	Model               string `json:"model"`
	SN                  string `json:"SN"`
	SerialNumberField   string `json:"serialNumber"`
	Type                string `json:"type"`
	CommunicationMethod string `json:"communicationMethod"`
	CPUVersion          string `json:"cpuVersion"`
	DSP1Version         string `json:"dsp1Version"`
	DSP2Version         string `json:"dsp2Version"`
	ConnectedOptimizers *int   `json:"connectedOptimizers"`
	LastReportDate      string `json:"lastReportDate"`
}

// SerialNumber prefers "SN" and falls back to "serialNumber".
func (r Reporter) SerialNumber() string {
	if r.SN != "" {
		return r.SN
	}
	return r.SerialNumberField
}

// DateValue is one point of the energy and power series.
type DateValue struct {
	Date  string   `json:"date"`
	Value *float64 `json:"value"`
}

// PowerFlow is the current power flow of a site.
type PowerFlow struct {
	Unit        string          `json:"unit"`
	Connections json.RawMessage `json:"connections"`
	Grid        *FlowNode       `json:"GRID"`
	PV          *FlowNode       `json:"PV"`
	Load        *FlowNode       `json:"LOAD"`
	Storage     *FlowNode       `json:"STORAGE"`
}

// FlowNode is one element of the power flow chart.
type FlowNode struct {
	Status       string   `json:"status"`
	CurrentPower *float64 `json:"currentPower"`
	ChargeLevel  *float64 `json:"chargeLevel"`
	Critical     *bool    `json:"critical"`
}

// StorageData lists the batteries of a site with their telemetry.
type StorageData struct {
	BatteryCount int                  `json:"batteryCount"`
	Batteries    List[StorageBattery] `json:"batteries"`
}

// StorageBattery is one battery of the storage data endpoint.
type StorageBattery struct {
	Name                string                 `json:"name"`
	SerialNumber        string                 `json:"serialNumber"`
	ModelNumber         string                 `json:"modelNumber"`
	ManufacturerName    string                 `json:"manufacturerName"`
	Nameplate           *float64               `json:"nameplate"`
	ConnectedInverterSn string                 `json:"connectedInverterSn"`
	TelemetryCount      int                    `json:"telemetryCount"`
	Telemetries         List[BatteryTelemetry] `json:"telemetries"`
}

// BatteryTelemetry is one battery sample.
type BatteryTelemetry struct {
	TimeStamp                string   `json:"timeStamp"`
	Power                    *float64 `json:"power"`
	BatteryState             *int     `json:"batteryState"`
	BatteryPercentageState   *float64 `json:"batteryPercentageState"`
	LifeTimeEnergyCharged    *float64 `json:"lifeTimeEnergyCharged"`
	LifeTimeEnergyDischarged *float64 `json:"lifeTimeEnergyDischarged"`
	FullPackEnergyAvailable  *float64 `json:"fullPackEnergyAvailable"`
}

// MeterInfo is one meter of the meter list.
type MeterInfo struct {
	Name         string `json:"name"`
	Manufacturer string `json:"manufacturer"`
	Model        string `json:"model"`
	Type         string `json:"type"`
	SN           string `json:"SN"`
	ConnectedTo  string `json:"connectedTo"`
	Form         string `json:"form"`
}

// MeterEnergyDetails holds meter readings. Readings come either as a list of named
// series (Meters) or as a map keyed by meter serial number (BySerial).
type MeterEnergyDetails struct {
	TimeUnit string            `json:"timeUnit"`
	Unit     string            `json:"unit"`
	Meters   List[MeterSeries] `json:"meters"`
	BySerial json.RawMessage   `json:"meterSerialNumber"`
}

// Series returns the readings in the list form, converting the serial-keyed shape when needed.
func (d *MeterEnergyDetails) Series() ([]MeterSeries, error) {
	if len(d.Meters) > 0 {
		return d.Meters, nil
	}
	raw := bytes.TrimSpace(d.BySerial)
	if len(raw) == 0 || raw[0] != '{' {
		return nil, nil
	}
	var bySerial map[string]List[MeterSample]
	if err := json.Unmarshal(raw, &bySerial); err != nil {
		return nil, err
	}
	series := make([]MeterSeries, 0, len(bySerial))
	for name, values := range bySerial {
		series = append(series, MeterSeries{Name: name, Values: values})
	}
	return series, nil
}

// MeterSeries is the readings of one meter.
type MeterSeries struct {
	Name              string            `json:"name"`
	MeterSerialNumber string            `json:"meterSerialNumber"`
	MeterType         string            `json:"meterType"`
	Values            List[MeterSample] `json:"values"`
}

// Key is the name used to match a series back to a meter.
func (s MeterSeries) Key() string {
	if s.Name != "" {
		return s.Name
	}
	return s.MeterSerialNumber
}

// MeterSample is one reading. Measurements are either nested under "values" or inlined.
type MeterSample struct {
	Date   string            `json:"date"`
	Nested *MeterMeasurement `json:"values"`
	MeterMeasurement
}

// Measurement returns the nested measurement if present, the inline one otherwise.
func (s MeterSample) Measurement() MeterMeasurement {
	if s.Nested != nil {
		return *s.Nested
	}
	return s.MeterMeasurement
}

// MeterMeasurement is a multi-phase meter measurement.
type MeterMeasurement struct {
	Power       *float64 `json:"power"`
	Energy      *float64 `json:"energy"`
	Value       *float64 `json:"value"`
	Voltage     Phases   `json:"voltage"`
	Current     Phases   `json:"current"`
	PowerFactor *float64 `json:"powerFactor"`
}

// Phases holds per-phase values.
type Phases struct {
	L1 *float64 `json:"L1"`
	L2 *float64 `json:"L2"`
	L3 *float64 `json:"L3"`
}

// EnvBenefits is the environmental benefits summary of a site.
type EnvBenefits struct {
	GasEmissionSaved *GasEmission `json:"gasEmissionSaved"`
	TreesPlanted     *float64     `json:"treesPlanted"`
	LightBulbs       *float64     `json:"lightBulbs"`
}

// GasEmission is the saved CO2/SO2/NOx.
type GasEmission struct {
	Units string   `json:"units"`
	CO2   *float64 `json:"co2"`
	SO2   *float64 `json:"so2"`
	NOx   *float64 `json:"nox"`
}

// AlertEntry is one alert of a site.
type AlertEntry struct {
	AlertID               int64  `json:"alertId"`
	Severity              string `json:"severity"`
	AlertCode             *int   `json:"alertCode"`
	AlertType             string `json:"alertType"`
	ComponentName         string `json:"componentName"`
	Message               string `json:"message"`
	ComponentSerialNumber string `json:"componentSerialNumber"`
	AlertTimestamp        string `json:"alertTimestamp"`
}

// InventoryEntry is one item of any inventory category.
type InventoryEntry struct {
	Name                string `json:"name"`
	Manufacturer        string `json:"manufacturer"`
	Model               string `json:"model"`
	SN                  string `json:"SN"`
	SerialNumberField   string `json:"serialNumber"`
	FirmwareVersion     string `json:"firmwareVersion"`
	CPUVersion          string `json:"cpuVersion"`
	ConnectedOptimizers *int   `json:"connectedOptimizers"`
	ConnectedTo         string `json:"connectedTo"`
}

// SerialNumber prefers "SN" and falls back to "serialNumber", or "".
func (e InventoryEntry) SerialNumber() string {
	if e.SN != "" {
		return e.SN
	}
	return e.SerialNumberField
}

// Inventory maps a category ("inverters", "meters", ...) to its items.
type Inventory map[string][]InventoryEntry

// InverterReading is one technical sample of an inverter.
type InverterReading struct {
	Date             string     `json:"date"`
	TotalActivePower *float64   `json:"totalActivePower"`
	DCVoltage        *float64   `json:"dcVoltage"`
	PowerLimit       *float64   `json:"powerLimit"`
	TotalEnergy      *float64   `json:"totalEnergy"`
	Temperature      *float64   `json:"temperature"`
	InverterMode     string     `json:"inverterMode"`
	OperationMode    *int       `json:"operationMode"`
	L1Data           *PhaseData `json:"L1Data"`
}

// PhaseData is the AC data of one phase.
type PhaseData struct {
	ACCurrent     *float64 `json:"acCurrent"`
	ACVoltage     *float64 `json:"acVoltage"`
	ACFrequency   *float64 `json:"acFrequency"`
	ApparentPower *float64 `json:"apparentPower"`
	ActivePower   *float64 `json:"activePower"`
	ReactivePower *float64 `json:"reactivePower"`
	CosPhi        *float64 `json:"cosPhi"`
}

// OptimizerReading is one technical sample of a power optimizer.
type OptimizerReading struct {
	Date           string   `json:"date"`
	PanelID        *int64   `json:"panelId"`
	DCVoltage      *float64 `json:"dcVoltage"`
	DCCurrent      *float64 `json:"dcCurrent"`
	DCPower        *float64 `json:"dcPower"`
	OutputVoltage  *float64 `json:"outputVoltage"`
	OutputCurrent  *float64 `json:"outputCurrent"`
	OutputPower    *float64 `json:"outputPower"`
	Energy         *float64 `json:"energy"`
	LifetimeEnergy *float64 `json:"lifetimeEnergy"`
	Temperature    *float64 `json:"temperature"`
	OptimizerMode  string   `json:"optimizerMode"`
}
