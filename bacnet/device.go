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

import (
	"fmt"
	"net"
	"sort"
)

const BacnetPort uint16 = 0xBAC0

// DeviceAddress describes how to reach a BACnet device: a local MAC
// (IP:port) and, for devices beyond the local IP network, the BACnet
// network number and the router's MAC that forwards to it.
type DeviceAddress struct {
	SrcMac    []byte
	SrcNet    uint16
	RouterMac []byte
}

// NewLocalAddress builds a DeviceAddress for a device on the local IP
// network (SrcNet zero, no router).
func NewLocalAddress(ip net.IP, port uint16) DeviceAddress {
	return DeviceAddress{SrcMac: ipToMac(ip, port)}
}

// NewRoutedAddress builds a DeviceAddress for a device reached through a
// BACnet router on a remote network number.
func NewRoutedAddress(srcMac []byte, net_ uint16, routerIP net.IP, routerPort uint16) DeviceAddress {
	return DeviceAddress{SrcMac: srcMac, SrcNet: net_, RouterMac: ipToMac(routerIP, routerPort)}
}

func ipToMac(ip net.IP, port uint16) []byte {
	v4 := ip.To4()
	if v4 == nil {
		return nil
	}
	mac := make([]byte, 6)
	copy(mac, v4)
	mac[4] = byte(port >> 8)
	mac[5] = byte(port)
	return mac
}

func macToIP(mac []byte) (net.IP, uint16) {
	if len(mac) != 6 {
		return nil, 0
	}
	ip := net.IPv4(mac[0], mac[1], mac[2], mac[3])
	port := uint16(mac[4])<<8 | uint16(mac[5])
	return ip, port
}

// SourceIP returns the device's own IP and port, decoded from SrcMac.
func (a DeviceAddress) SourceIP() (net.IP, uint16) { return macToIP(a.SrcMac) }

// RouterIP returns the router's IP and port, decoded from RouterMac.
func (a DeviceAddress) RouterIP() (net.IP, uint16) { return macToIP(a.RouterMac) }

// HasRouter reports whether this address is reached through a router.
func (a DeviceAddress) HasRouter() bool { return len(a.RouterMac) > 0 }

// IsLocal reports whether the device is on the local BACnet network
// (network number 0).
func (a DeviceAddress) IsLocal() bool { return a.SrcNet == 0 }

func (a DeviceAddress) String() string {
	ip, port := a.SourceIP()
	if !a.HasRouter() {
		return fmt.Sprintf("%s:%d", ip, port)
	}
	rip, rport := a.RouterIP()
	return fmt.Sprintf("%s:%d via %s:%d net %d", ip, port, rip, rport, a.SrcNet)
}

// Device owns a set of objects, always including its own Device object,
// indexed by ObjectIdentifier. Unlike the object model this was adapted
// from, which let each Object carry a back-pointer to its owning Device,
// objects here are plain values reachable only through the Device's map --
// there is no parent pointer to keep consistent.
type Device struct {
	address       DeviceAddress
	objects       map[ObjectIdentifier]*Object
	nextInstances map[ObjectType]uint32
}

// NewDevice creates a Device whose Device object has the given instance
// number and name.
func NewDevice(instance uint32, name string) (*Device, error) {
	devObj, err := NewObject(ObjectTypeDevice, instance, name)
	if err != nil {
		return nil, err
	}
	d := &Device{
		objects:       map[ObjectIdentifier]*Object{devObj.OID(): devObj},
		nextInstances: map[ObjectType]uint32{},
	}
	return d, nil
}

// SetAddress assigns the device's network address.
func (d *Device) SetAddress(addr DeviceAddress) { d.address = addr }

// Address returns the device's network address.
func (d *Device) Address() DeviceAddress { return d.address }

// Instance returns the Device object's instance number.
func (d *Device) Instance() uint32 { return d.deviceObject().Instance() }

// Name returns the Device object's name.
func (d *Device) Name() string { return d.deviceObject().Name() }

func (d *Device) deviceObject() *Object {
	for oid, o := range d.objects {
		if oid.Type == ObjectTypeDevice {
			return o
		}
	}
	panic("bacnet: device missing its own Device object")
}

// DeviceOID returns the identifier of the device's own Device object.
func (d *Device) DeviceOID() ObjectIdentifier { return d.deviceObject().OID() }

// AddObject registers obj under its identifier, rejecting a duplicate OID,
// a second Device object, or a name already used by another object on this
// device.
func (d *Device) AddObject(obj *Object) error {
	if obj.Type() == ObjectTypeDevice {
		return NewBACnetError(ErrorClassObject, ErrorCodeDynamicCreationNotSupported)
	}
	if _, exists := d.objects[obj.OID()]; exists {
		return NewBACnetError(ErrorClassObject, ErrorCodeObjectIdentifierAlreadyExists)
	}
	if obj.Name() != "" {
		for _, existing := range d.objects {
			if existing.Name() == obj.Name() {
				return NewBACnetError(ErrorClassObject, ErrorCodeObjectIdentifierAlreadyExists)
			}
		}
	}
	d.objects[obj.OID()] = obj
	if obj.Instance() >= d.nextInstances[obj.Type()] {
		d.nextInstances[obj.Type()] = obj.Instance() + 1
	}
	return nil
}

// DeleteObject removes the object with the given identifier. Deleting the
// device's own Device object is not permitted.
func (d *Device) DeleteObject(oid ObjectIdentifier) error {
	if oid.Type == ObjectTypeDevice {
		return NewBACnetError(ErrorClassObject, ErrorCodeObjectDeletionNotPermitted)
	}
	if _, ok := d.objects[oid]; !ok {
		return NewBACnetError(ErrorClassObject, ErrorCodeUnknownObject)
	}
	delete(d.objects, oid)
	return nil
}

// objectRef returns the live object stored under oid, for callers inside
// the package that mutate it under the server's lock. Never hand this
// pointer to a caller outside the lock; use Object instead.
func (d *Device) objectRef(oid ObjectIdentifier) (*Object, error) {
	o, ok := d.objects[oid]
	if !ok {
		return nil, NewBACnetError(ErrorClassObject, ErrorCodeUnknownObject)
	}
	return o, nil
}

// Object returns a snapshot of the object with the given identifier.
// Mutating the returned Object never affects the device's own copy.
func (d *Device) Object(oid ObjectIdentifier) (*Object, error) {
	o, err := d.objectRef(oid)
	if err != nil {
		return nil, err
	}
	return o.Clone(), nil
}

// ObjectByName looks up an object by its ObjectName property and returns a
// snapshot of it.
func (d *Device) ObjectByName(name string) (*Object, error) {
	for _, o := range d.objects {
		if o.Name() == name {
			return o.Clone(), nil
		}
	}
	return nil, NewBACnetError(ErrorClassObject, ErrorCodeUnknownObject)
}

// HasObject reports whether oid exists on this device.
func (d *Device) HasObject(oid ObjectIdentifier) bool {
	_, ok := d.objects[oid]
	return ok
}

// Count returns the number of objects on this device, including the
// Device object itself.
func (d *Device) Count() int { return len(d.objects) }

// NextInstance returns the next unused instance number for objType.
func (d *Device) NextInstance(objType ObjectType) uint32 { return d.nextInstances[objType] }

// Objects returns a snapshot of every object on this device ordered by
// (type, instance).
func (d *Device) Objects() []*Object {
	out := make([]*Object, 0, len(d.objects))
	for _, o := range d.objects {
		out = append(out, o.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Type() != out[j].Type() {
			return out[i].Type() < out[j].Type()
		}
		return out[i].Instance() < out[j].Instance()
	})
	return out
}

// NextObject returns the object immediately following from in (type,
// instance) order, or nil if from is the last object. A nil from selects
// the first object.
func (d *Device) NextObject(from *ObjectIdentifier) *Object {
	all := d.Objects()
	if from == nil {
		if len(all) == 0 {
			return nil
		}
		return all[0]
	}
	for i, o := range all {
		if o.OID() == *from && i+1 < len(all) {
			return all[i+1]
		}
	}
	return nil
}

// Clone deep-copies the device and every object it holds. Used when a
// caller outside the server's lock (a remote-device registry entry handed
// back to a client) needs a snapshot it can read without racing writers.
func (d *Device) Clone() *Device {
	c := &Device{
		address:       d.address,
		objects:       make(map[ObjectIdentifier]*Object, len(d.objects)),
		nextInstances: make(map[ObjectType]uint32, len(d.nextInstances)),
	}
	for oid, o := range d.objects {
		c.objects[oid] = o.Clone()
	}
	for t, n := range d.nextInstances {
		c.nextInstances[t] = n
	}
	return c
}
