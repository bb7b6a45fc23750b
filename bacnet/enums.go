// Copyright 2025 Edgeo SCADA
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package bacnet


// BinaryPV is the two-state PresentValue domain of Binary Input/Output/Value objects.
type BinaryPV uint32

const (
	BinaryInactive BinaryPV = 0
	BinaryActive   BinaryPV = 1
)

func (b BinaryPV) String() string {
	if b == BinaryActive {
		return "active"
	}
	return "inactive"
}

// Polarity governs how a Binary Output's PresentValue maps to the physical output.
type Polarity uint32

const (
	PolarityNormal  Polarity = 0
	PolarityReverse Polarity = 1
)

func (p Polarity) String() string {
	if p == PolarityReverse {
		return "reverse"
	}
	return "normal"
}

// Domains used by EnumBaseType-family properties (spec.md 4.2) to validate
// assignment membership.
var (
	domainEngineeringUnits = &EnumDomain{Name: "engineering-units", Valid: func(v uint32) bool {
		_, known := engineeringUnitsNames[EngineeringUnits(v)]
		return known || EngineeringUnits(v) == UnitsNoUnits
	}}
	domainDeviceStatus = &EnumDomain{Name: "device-status", Valid: func(v uint32) bool {
		return v <= uint32(DeviceStatusBackupInProgress)
	}}
	domainBinaryPV = &EnumDomain{Name: "binary-pv", Valid: func(v uint32) bool {
		return v == uint32(BinaryInactive) || v == uint32(BinaryActive)
	}}
	domainPolarity = &EnumDomain{Name: "polarity", Valid: func(v uint32) bool {
		return v == uint32(PolarityNormal) || v == uint32(PolarityReverse)
	}}
	domainObjectType = &EnumDomain{Name: "object-type", Valid: func(v uint32) bool {
		return v <= uint32(ObjectTypeLift)
	}}
	domainSegmentation = &EnumDomain{Name: "segmentation", Valid: func(v uint32) bool {
		return v <= uint32(SegmentationNone)
	}}
)

// engineeringUnitsNames mirrors the String() lookup table in types.go so the
// domain check does not depend on that function's fallback formatting.
var engineeringUnitsNames = map[EngineeringUnits]string{
	UnitsDegreesCelsius: "degrees-celsius", UnitsDegreesFahrenheit: "degrees-fahrenheit",
	UnitsDegreesKelvin: "degrees-kelvin", UnitsPercent: "percent",
	UnitsPercentRelativeHumidity: "percent-relative-humidity", UnitsMeters: "meters",
	UnitsFeet: "feet", UnitsVolts: "volts", UnitsAmperes: "amperes", UnitsWatts: "watts",
	UnitsKilowatts: "kilowatts", UnitsHertz: "hertz", UnitsPascals: "pascals",
	UnitsSeconds: "seconds", UnitsMinutes: "minutes", UnitsHours: "hours",
	UnitsMillimeters: "millimeters", UnitsInches: "inches", UnitsMilliamperes: "milliamperes",
	UnitsMegawatts: "megawatts", UnitsKilowattHours: "kilowatt-hours",
	UnitsKilopascals: "kilopascals", UnitsBars: "bars", UnitsLiters: "liters",
	UnitsCubicMeters: "cubic-meters", UnitsLitersPerSecond: "liters-per-second",
	UnitsLitersPerMinute: "liters-per-minute", UnitsMetersPerSecond: "meters-per-second",
	UnitsDays: "days",
	UnitsNoUnits: "no-units",
}
