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

func TestNewObjectRejectsOutOfRangeInstance(t *testing.T) {
	_, err := NewObject(ObjectTypeAnalogInput, MaxInstance+1, "")
	if err == nil {
		t.Fatal("expected error constructing an object with an out-of-range instance")
	}
	be, ok := err.(*BACnetError)
	if !ok || be.Class != ErrorClassObject || be.Code != ErrorCodeUnknownObject {
		t.Errorf("err = %v, want class Object / code UnknownObject", err)
	}
}

func TestNewCheckedObjectIdentifierAcceptsMaxInstance(t *testing.T) {
	oid, err := NewCheckedObjectIdentifier(ObjectTypeAnalogInput, MaxInstance)
	if err != nil {
		t.Fatalf("unexpected error at the boundary instance: %v", err)
	}
	if oid.Instance != MaxInstance {
		t.Errorf("Instance = %d, want %d", oid.Instance, MaxInstance)
	}
}

func TestObjectIdentifierValueSetRejectsOutOfRangeInstance(t *testing.T) {
	v := NewObjectIdentifierValue(NewObjectIdentifier(ObjectTypeAnalogInput, 1))
	bad := NewObjectIdentifierValue(ObjectIdentifier{Type: ObjectTypeAnalogInput, Instance: MaxInstance + 1})

	_, err := v.Set(bad, true)
	if err == nil {
		t.Fatal("expected error setting an out-of-range instance")
	}
	if v.OID.Instance != 1 {
		t.Error("Set should leave the value unchanged on a rejected assignment")
	}
}
