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

import "testing"

func TestAddObjectRejectsSecondDeviceObject(t *testing.T) {
	d, err := NewDevice(1, "dev-1")
	if err != nil {
		t.Fatalf("NewDevice: %v", err)
	}
	second, err := NewObject(ObjectTypeDevice, 2, "dev-2")
	if err != nil {
		t.Fatalf("NewObject: %v", err)
	}
	err = d.AddObject(second)
	if err == nil {
		t.Fatal("expected error adding a second Device object")
	}
	be, ok := err.(*BACnetError)
	if !ok || be.Code != ErrorCodeDynamicCreationNotSupported {
		t.Errorf("err = %v, want ErrorCodeDynamicCreationNotSupported", err)
	}
}

func TestDeleteObjectRejectsDeletingDeviceObject(t *testing.T) {
	d, err := NewDevice(1, "dev-1")
	if err != nil {
		t.Fatalf("NewDevice: %v", err)
	}
	err = d.DeleteObject(d.DeviceOID())
	if err == nil {
		t.Fatal("expected error deleting the Device object")
	}
	be, ok := err.(*BACnetError)
	if !ok || be.Code != ErrorCodeObjectDeletionNotPermitted {
		t.Errorf("err = %v, want ErrorCodeObjectDeletionNotPermitted", err)
	}
}

func TestObjectReturnsSnapshotNotLivePointer(t *testing.T) {
	d, err := NewDevice(1, "dev-1")
	if err != nil {
		t.Fatalf("NewDevice: %v", err)
	}
	ai, err := NewObject(ObjectTypeAnalogInput, 1, "ai-1")
	if err != nil {
		t.Fatalf("NewObject: %v", err)
	}
	if err := d.AddObject(ai); err != nil {
		t.Fatalf("AddObject: %v", err)
	}

	snap, err := d.Object(ai.OID())
	if err != nil {
		t.Fatalf("Object: %v", err)
	}
	if err := snap.WriteProperty(PropertyPresentValue, NewReal(99), false); err != nil {
		t.Fatalf("WriteProperty on snapshot: %v", err)
	}

	live, err := d.Object(ai.OID())
	if err != nil {
		t.Fatalf("Object: %v", err)
	}
	p, err := live.Property(PropertyPresentValue)
	if err != nil {
		t.Fatalf("Property: %v", err)
	}
	if rv, ok := p.Value.(*RealValue); !ok || rv.Value == 99 {
		t.Error("mutating a snapshot returned by Object mutated the device's stored object")
	}
}

func TestDeviceCloneIsIndependent(t *testing.T) {
	d, err := NewDevice(1, "dev-1")
	if err != nil {
		t.Fatalf("NewDevice: %v", err)
	}
	clone := d.Clone()
	ai, err := NewObject(ObjectTypeAnalogInput, 1, "ai-1")
	if err != nil {
		t.Fatalf("NewObject: %v", err)
	}
	if err := d.AddObject(ai); err != nil {
		t.Fatalf("AddObject: %v", err)
	}
	if clone.HasObject(ai.OID()) {
		t.Error("mutating the original device after Clone affected the clone")
	}
}
