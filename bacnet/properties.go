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

import "sort"

// Property is the tuple (value, is_required, is_remote_writable). Its flags
// and value type are fixed at creation; only the value payload may be
// replaced, and only by another value of the same variant tag.
type Property struct {
	Value          Value
	Required       bool
	RemoteWritable bool
}

// NewProperty builds a Property around an already-constructed Value.
func NewProperty(v Value, required, remoteWritable bool) *Property {
	return &Property{Value: v, Required: required, RemoteWritable: remoteWritable}
}

// Clone deep-copies the property, including its value.
func (p *Property) Clone() *Property {
	return &Property{Value: p.Value.Clone(), Required: p.Required, RemoteWritable: p.RemoteWritable}
}

// SetValue assigns a new payload, enforcing the same-variant-tag rule (with
// the Enumerated/Unsigned coercion Value.Set already understands).
func (p *Property) SetValue(v Value) error {
	ok, err := p.Value.Set(v, true)
	if err != nil {
		return err
	}
	if !ok {
		return NewBACnetError(ErrorClassProperty, ErrorCodeInvalidDataType)
	}
	return nil
}

// objectPropertyTemplate is one entry in the static per-object-type registry:
// (object_type, property_id, default_property).
type objectPropertyTemplate struct {
	Type    ObjectType
	PID     PropertyIdentifier
	Default *Property
}

var propertyTemplates = map[ObjectType][]objectPropertyTemplate{}

func registerTemplate(t ObjectType, pid PropertyIdentifier, p *Property) {
	propertyTemplates[t] = append(propertyTemplates[t], objectPropertyTemplate{Type: t, PID: pid, Default: p})
}

func essentialTemplates(t ObjectType) []objectPropertyTemplate {
	return []objectPropertyTemplate{
		{Type: t, PID: PropertyObjectIdentifier, Default: NewProperty(NewObjectIdentifierValue(ObjectIdentifier{}), true, false)},
		{Type: t, PID: PropertyObjectType, Default: NewProperty(NewEnumeratedIn(domainObjectType, uint32(t)), true, false)},
		{Type: t, PID: PropertyObjectName, Default: NewProperty(NewCharacterString(""), true, false)},
	}
}

func init() {
	registerAnalogTemplates(ObjectTypeAnalogInput, false)
	registerAnalogTemplates(ObjectTypeAnalogOutput, true)
	registerAnalogTemplates(ObjectTypeAnalogValue, true)

	registerBinaryTemplates(ObjectTypeBinaryInput, false)
	registerBinaryTemplates(ObjectTypeBinaryOutput, true)
	registerBinaryTemplates(ObjectTypeBinaryValue, true)

	registerMultiStateTemplates(ObjectTypeMultiStateInput, false)
	registerMultiStateTemplates(ObjectTypeMultiStateOutput, true)
	registerMultiStateTemplates(ObjectTypeMultiStateValue, true)

	registerDeviceTemplates()
}

func zeroStatusFlags() Value { return NewBitString([]byte{0x00}, 4) }

func registerAnalogTemplates(t ObjectType, writable bool) {
	registerTemplate(t, PropertyPresentValue, NewProperty(NewReal(0.0), true, writable))
	registerTemplate(t, PropertyStatusFlags, NewProperty(zeroStatusFlags(), true, false))
	registerTemplate(t, PropertyUnits, NewProperty(NewEnumeratedIn(domainEngineeringUnits, uint32(UnitsNoUnits)), true, false))
	registerTemplate(t, PropertyDescription, NewProperty(NewCharacterString(""), false, true))
}

func registerBinaryTemplates(t ObjectType, writable bool) {
	registerTemplate(t, PropertyPresentValue, NewProperty(NewEnumeratedIn(domainBinaryPV, uint32(BinaryInactive)), true, writable))
	registerTemplate(t, PropertyStatusFlags, NewProperty(zeroStatusFlags(), true, false))
	registerTemplate(t, PropertyDescription, NewProperty(NewCharacterString(""), false, true))
	registerTemplate(t, PropertyActiveText, NewProperty(NewCharacterString("Active"), false, true))
	registerTemplate(t, PropertyInactiveText, NewProperty(NewCharacterString("Inactive"), false, true))
	if t == ObjectTypeBinaryOutput {
		registerTemplate(t, PropertyPolarity, NewProperty(NewEnumeratedIn(domainPolarity, uint32(PolarityNormal)), false, true))
	}
}

func registerMultiStateTemplates(t ObjectType, writable bool) {
	registerTemplate(t, PropertyPresentValue, NewProperty(NewUnsigned(1), true, writable))
	registerTemplate(t, PropertyNumberOfStates, NewProperty(NewUnsigned(1), true, false))
	registerTemplate(t, PropertyStatusFlags, NewProperty(zeroStatusFlags(), true, false))
	registerTemplate(t, PropertyDescription, NewProperty(NewCharacterString(""), false, true))
}

func registerDeviceTemplates() {
	t := ObjectTypeDevice
	registerTemplate(t, PropertySystemStatus, NewProperty(NewEnumeratedIn(domainDeviceStatus, uint32(DeviceStatusOperational)), true, false))
	registerTemplate(t, PropertyVendorName, NewProperty(NewCharacterString(""), true, false))
	registerTemplate(t, PropertyVendorIdentifier, NewProperty(NewUnsigned(0), true, false))
	registerTemplate(t, PropertyMaxApduLengthAccepted, NewProperty(NewUnsigned(MaxAPDULength), true, false))
	registerTemplate(t, PropertySegmentationSupported, NewProperty(NewEnumeratedIn(domainSegmentation, uint32(SegmentationNone)), true, false))
	registerTemplate(t, PropertyModelName, NewProperty(NewCharacterString(""), true, false))
	registerTemplate(t, PropertyFirmwareRevision, NewProperty(NewCharacterString(""), true, false))
	registerTemplate(t, PropertyApplicationSoftwareVersion, NewProperty(NewCharacterString(""), true, false))
	registerTemplate(t, PropertyLocation, NewProperty(NewCharacterString(""), false, true))
	registerTemplate(t, PropertyDescription, NewProperty(NewCharacterString(""), false, true))
	registerTemplate(t, PropertyApduTimeout, NewProperty(NewUnsigned(3000), true, false))
	registerTemplate(t, PropertyNumberOfApduRetries, NewProperty(NewUnsigned(2), true, false))
	registerTemplate(t, PropertyDatabaseRevision, NewProperty(NewUnsigned(0), true, false))
	registerTemplate(t, PropertyProtocolObjectTypesSupported, NewProperty(supportedTypesBitString(), true, false))
}

// supportedObjectTypes lists the object types this local device acts as
// server for (spec.md 6).
var supportedObjectTypes = []ObjectType{
	ObjectTypeAnalogInput, ObjectTypeAnalogOutput, ObjectTypeAnalogValue,
	ObjectTypeBinaryInput, ObjectTypeBinaryOutput, ObjectTypeBinaryValue,
	ObjectTypeDevice,
	ObjectTypeMultiStateInput, ObjectTypeMultiStateOutput, ObjectTypeMultiStateValue,
}

func supportedTypesBitString() Value {
	const bitCount = int(ObjectTypeLift) + 1
	bits := make([]byte, (bitCount+7)/8)
	for _, t := range supportedObjectTypes {
		byteIdx := int(t) / 8
		bitIdx := 7 - (int(t) % 8)
		bits[byteIdx] |= 1 << uint(bitIdx)
	}
	return NewBitString(bits, bitCount)
}

// GetAll, GetEssential, GetDefault, SupportedObjectTypes and PropertiesIDSet
// query the static property/object template registry of spec.md 4.3,
// populated once at process start.

// GetAll returns every property template registered for type t, including
// the three essential properties.
func GetAll(t ObjectType) []*ObjectProperty {
	all := essentialTemplates(t)
	all = append(all, propertyTemplates[t]...)
	out := make([]*ObjectProperty, 0, len(all))
	for _, tpl := range all {
		out = append(out, &ObjectProperty{Type: tpl.Type, PID: tpl.PID, Default: tpl.Default})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PID < out[j].PID })
	return out
}

// GetEssential returns only ObjectIdentifier, ObjectType, ObjectName.
func GetEssential(t ObjectType) []*ObjectProperty {
	tpl := essentialTemplates(t)
	out := make([]*ObjectProperty, 0, len(tpl))
	for _, e := range tpl {
		out = append(out, &ObjectProperty{Type: e.Type, PID: e.PID, Default: e.Default})
	}
	return out
}

// GetDefault returns a fresh clone of the default Property for (type, pid),
// or a UnknownProperty error if the type does not declare that property.
func GetDefault(t ObjectType, pid PropertyIdentifier) (*Property, error) {
	for _, e := range essentialTemplates(t) {
		if e.PID == pid {
			return e.Default.Clone(), nil
		}
	}
	for _, e := range propertyTemplates[t] {
		if e.PID == pid {
			return e.Default.Clone(), nil
		}
	}
	return nil, NewBACnetError(ErrorClassProperty, ErrorCodeUnknownProperty)
}

// SupportedObjectTypes returns the object types this device acts as server
// for, as a BitString indexed by numeric object type.
func SupportedObjectTypes() Value { return supportedTypesBitString() }

// IsSupportedObjectType reports whether t has a registered template.
func IsSupportedObjectType(t ObjectType) bool {
	for _, s := range supportedObjectTypes {
		if s == t {
			return true
		}
	}
	return false
}

// PropIDChoice selects which subset of a type's properties to list.
type PropIDChoice int

const (
	PropIDAll PropIDChoice = iota
	PropIDRequired
	PropIDOptional
)

// PropertiesIDSet returns the set of property identifiers registered for t
// matching choice.
func PropertiesIDSet(t ObjectType, choice PropIDChoice) []PropertyIdentifier {
	var out []PropertyIdentifier
	for _, e := range GetAll(t) {
		switch choice {
		case PropIDRequired:
			if !e.Default.Required {
				continue
			}
		case PropIDOptional:
			if e.Default.Required {
				continue
			}
		}
		out = append(out, e.PID)
	}
	return out
}

// ObjectProperty is a queryable view of a registered template entry.
type ObjectProperty struct {
	Type    ObjectType
	PID     PropertyIdentifier
	Default *Property
}
