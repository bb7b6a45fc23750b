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

// Object is a live instance of a BACnet object: a property map seeded from
// the static template for its type, plus the three identity properties that
// never change once the object exists.
type Object struct {
	oid   ObjectIdentifier
	props map[PropertyIdentifier]*Property
}

// NewObject creates an Object of the given type and instance, seeded with
// every property the static registry declares for that type. name is
// assigned to ObjectName if non-empty.
func NewObject(objType ObjectType, instance uint32, name string) (*Object, error) {
	if !IsSupportedObjectType(objType) {
		return nil, NewBACnetError(ErrorClassObject, ErrorCodeOptionalFunctionalityNotSupported)
	}
	oid, err := NewCheckedObjectIdentifier(objType, instance)
	if err != nil {
		return nil, err
	}
	o := &Object{oid: oid, props: make(map[PropertyIdentifier]*Property)}
	for _, tpl := range GetAll(objType) {
		o.props[tpl.PID] = tpl.Default.Clone()
	}
	o.props[PropertyObjectIdentifier].Value = NewObjectIdentifierValue(oid)
	if name != "" {
		o.props[PropertyObjectName].Value = NewCharacterString(name)
	}
	return o, nil
}

// OID returns the object's identifier.
func (o *Object) OID() ObjectIdentifier { return o.oid }

// Type returns the object's type.
func (o *Object) Type() ObjectType { return o.oid.Type }

// Instance returns the object's instance number.
func (o *Object) Instance() uint32 { return o.oid.Instance }

// Name returns the ObjectName property's current string value.
func (o *Object) Name() string {
	p, ok := o.props[PropertyObjectName]
	if !ok {
		return ""
	}
	return p.Value.(*CharacterStringValue).Value
}

// Property returns the live Property for id, or an UnknownProperty error.
func (o *Object) Property(id PropertyIdentifier) (*Property, error) {
	p, ok := o.props[id]
	if !ok {
		return nil, NewBACnetError(ErrorClassProperty, ErrorCodeUnknownProperty)
	}
	return p, nil
}

// PropertyIDs returns every property identifier present on this object,
// in ascending numeric order.
func (o *Object) PropertyIDs() []PropertyIdentifier {
	ids := make([]PropertyIdentifier, 0, len(o.props))
	for id := range o.props {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// CanChangeProperty reports whether id may be written after object
// creation. ObjectIdentifier, ObjectName, and ObjectType are fixed for the
// life of the object.
func CanChangeProperty(id PropertyIdentifier) bool {
	switch id {
	case PropertyObjectIdentifier, PropertyObjectName, PropertyObjectType:
		return false
	default:
		return true
	}
}

// WriteProperty assigns v to property id, honoring the immutable-property
// and remote-writability rules. remote is true when the write originates
// from a WriteProperty service request rather than local configuration.
func (o *Object) WriteProperty(id PropertyIdentifier, v Value, remote bool) error {
	p, err := o.Property(id)
	if err != nil {
		return err
	}
	if !CanChangeProperty(id) {
		return NewBACnetError(ErrorClassProperty, ErrorCodeWriteAccessDenied)
	}
	if remote && !p.RemoteWritable {
		return NewBACnetError(ErrorClassProperty, ErrorCodeWriteAccessDenied)
	}
	return p.SetValue(v)
}

// IsPropertyModified reports whether id's value changed (bit-exact) since
// the last ResetModified on that property.
func (o *Object) IsPropertyModified(id PropertyIdentifier) bool {
	p, ok := o.props[id]
	return ok && p.Value.Modified()
}

// ClearPropertyModified resets id's modified flag.
func (o *Object) ClearPropertyModified(id PropertyIdentifier) {
	if p, ok := o.props[id]; ok {
		p.Value.ResetModified()
	}
}

// IsPropertyDirty reports whether id was written since the last
// ClearPropertyDirty on that property.
func (o *Object) IsPropertyDirty(id PropertyIdentifier) bool {
	p, ok := o.props[id]
	return ok && p.Value.Dirty()
}

// ClearPropertyDirty resets id's dirty flag.
func (o *Object) ClearPropertyDirty(id PropertyIdentifier) {
	if p, ok := o.props[id]; ok {
		p.Value.ResetDirty()
	}
}

// IsPropertyRemoteWritable reports whether id may be written by a remote
// WriteProperty request.
func (o *Object) IsPropertyRemoteWritable(id PropertyIdentifier) bool {
	p, ok := o.props[id]
	return ok && p.RemoteWritable
}

// Clone deep-copies the object and every property value it holds.
func (o *Object) Clone() *Object {
	c := &Object{oid: o.oid, props: make(map[PropertyIdentifier]*Property, len(o.props))}
	for id, p := range o.props {
		c.props[id] = p.Clone()
	}
	return c
}
