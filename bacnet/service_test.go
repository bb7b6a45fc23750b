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
	"testing"

	"go.uber.org/zap"
)

func newTestServiceLayer(t *testing.T) *serviceLayer {
	t.Helper()
	d, err := NewDevice(260001, "test-device")
	if err != nil {
		t.Fatalf("NewDevice: %v", err)
	}
	return newServiceLayer(d, NewTransactionManager(), newEventBus(8), zap.NewNop(), NewMetrics())
}

func TestOnIAmPersistsIdentityProperties(t *testing.T) {
	s := newTestServiceLayer(t)
	addr := NewLocalAddress(nil, 0)

	s.OnIAm(addr, 999, 1024, SegmentationBoth, 42)

	rd, ok := s.RemoteDevice(999)
	if !ok {
		t.Fatal("expected device 999 to be registered")
	}
	devObj, err := rd.Object(rd.DeviceOID())
	if err != nil {
		t.Fatalf("Object: %v", err)
	}

	vendorProp, err := devObj.Property(PropertyVendorIdentifier)
	if err != nil {
		t.Fatalf("Property(VendorIdentifier): %v", err)
	}
	if uv, ok := vendorProp.Value.(*UnsignedValue); !ok || uv.Value != 42 {
		t.Errorf("VendorIdentifier = %#v, want 42", vendorProp.Value)
	}

	maxAPDUProp, err := devObj.Property(PropertyMaxApduLengthAccepted)
	if err != nil {
		t.Fatalf("Property(MaxApduLengthAccepted): %v", err)
	}
	if uv, ok := maxAPDUProp.Value.(*UnsignedValue); !ok || uv.Value != 1024 {
		t.Errorf("MaxApduLengthAccepted = %#v, want 1024", maxAPDUProp.Value)
	}

	segProp, err := devObj.Property(PropertySegmentationSupported)
	if err != nil {
		t.Fatalf("Property(SegmentationSupported): %v", err)
	}
	ev, ok := segProp.Value.(*EnumeratedValue)
	if !ok || Segmentation(ev.Value) != SegmentationBoth {
		t.Errorf("SegmentationSupported = %#v, want SegmentationBoth", segProp.Value)
	}
}

func TestRemoteDevicesReturnsSnapshots(t *testing.T) {
	s := newTestServiceLayer(t)
	addr := NewLocalAddress(nil, 0)
	s.OnIAm(addr, 999, 1024, SegmentationNone, 1)

	rd, ok := s.RemoteDevice(999)
	if !ok {
		t.Fatal("expected device 999 to be registered")
	}
	devObj, err := rd.Object(rd.DeviceOID())
	if err != nil {
		t.Fatalf("Object: %v", err)
	}
	if err := devObj.WriteProperty(PropertyVendorIdentifier, NewUnsigned(7777), false); err != nil {
		t.Fatalf("WriteProperty on snapshot: %v", err)
	}

	again, ok := s.RemoteDevice(999)
	if !ok {
		t.Fatal("expected device 999 to still be registered")
	}
	obj, err := again.Object(again.DeviceOID())
	if err != nil {
		t.Fatalf("Object: %v", err)
	}
	p, err := obj.Property(PropertyVendorIdentifier)
	if err != nil {
		t.Fatalf("Property: %v", err)
	}
	if uv, ok := p.Value.(*UnsignedValue); !ok || uv.Value == 7777 {
		t.Error("mutating a RemoteDevice snapshot mutated the registry's stored copy")
	}
}
