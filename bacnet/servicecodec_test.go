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

func TestReadPropertyRequestRoundTrip(t *testing.T) {
	oid := NewObjectIdentifier(ObjectTypeAnalogInput, 1)
	body := EncodeReadPropertyRequest(oid, PropertyPresentValue, noArrayIndex)

	gotOID, gotPID, gotIdx, err := DecodeReadPropertyRequest(body)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if gotOID != oid {
		t.Errorf("oid = %v, want %v", gotOID, oid)
	}
	if gotPID != PropertyPresentValue {
		t.Errorf("pid = %v, want %v", gotPID, PropertyPresentValue)
	}
	if gotIdx != noArrayIndex {
		t.Errorf("arrayIndex = %d, want %d", gotIdx, noArrayIndex)
	}
}

func TestReadPropertyRequestRoundTripWithArrayIndex(t *testing.T) {
	oid := NewObjectIdentifier(ObjectTypeAnalogValue, 7)
	body := EncodeReadPropertyRequest(oid, PropertyPriorityArray, 3)

	_, _, gotIdx, err := DecodeReadPropertyRequest(body)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if gotIdx != 3 {
		t.Errorf("arrayIndex = %d, want 3", gotIdx)
	}
}

func TestReadPropertyAckRoundTrip(t *testing.T) {
	oid := NewObjectIdentifier(ObjectTypeAnalogInput, 1)
	value := NewReal(21.5)

	body := EncodeReadPropertyAck(oid, PropertyPresentValue, noArrayIndex, value)
	gotOID, gotPID, gotIdx, gotValue, err := DecodeReadPropertyAck(body)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if gotOID != oid || gotPID != PropertyPresentValue || gotIdx != noArrayIndex {
		t.Fatalf("got oid=%v pid=%v idx=%d", gotOID, gotPID, gotIdx)
	}
	rv, ok := gotValue.(*RealValue)
	if !ok {
		t.Fatalf("value type = %T, want *RealValue", gotValue)
	}
	if rv.Value != 21.5 {
		t.Errorf("value = %v, want 21.5", rv.Value)
	}
}

func TestWritePropertyRequestRoundTrip(t *testing.T) {
	oid := NewObjectIdentifier(ObjectTypeAnalogOutput, 2)
	value := NewReal(72.0)

	body := EncodeWritePropertyRequest(oid, PropertyPresentValue, noArrayIndex, value, 8)
	gotOID, gotPID, gotIdx, gotValue, gotPriority, err := DecodeWritePropertyRequest(body)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if gotOID != oid || gotPID != PropertyPresentValue || gotIdx != noArrayIndex {
		t.Fatalf("got oid=%v pid=%v idx=%d", gotOID, gotPID, gotIdx)
	}
	if gotPriority != 8 {
		t.Errorf("priority = %d, want 8", gotPriority)
	}
	rv, ok := gotValue.(*RealValue)
	if !ok || rv.Value != 72.0 {
		t.Fatalf("value = %#v, want RealValue(72.0)", gotValue)
	}
}

func TestWritePropertyRequestNoPriority(t *testing.T) {
	oid := NewObjectIdentifier(ObjectTypeBinaryOutput, 1)
	value := NewEnumerated(1)

	body := EncodeWritePropertyRequest(oid, PropertyPresentValue, noArrayIndex, value, 0)
	_, _, _, _, gotPriority, err := DecodeWritePropertyRequest(body)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if gotPriority != 0 {
		t.Errorf("priority = %d, want 0 when omitted", gotPriority)
	}
}

func TestWhoIsRequestRoundTrip(t *testing.T) {
	body := EncodeWhoIsRequest(100, 200)
	min, max, err := DecodeWhoIsRequest(body)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if min != 100 || max != 200 {
		t.Errorf("min=%d max=%d, want 100,200", min, max)
	}
}

func TestWhoIsRequestUnbounded(t *testing.T) {
	body := EncodeWhoIsRequest(-1, -1)
	min, max, err := DecodeWhoIsRequest(body)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if min != -1 || max != -1 {
		t.Errorf("min=%d max=%d, want -1,-1", min, max)
	}
}

func TestIAmRequestRoundTrip(t *testing.T) {
	oid := NewObjectIdentifier(ObjectTypeDevice, 260001)
	body := EncodeIAmRequest(oid, 1476, SegmentationNone, 999)

	gotOID, maxAPDU, seg, vendorID, err := DecodeIAmRequest(body)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if gotOID != oid {
		t.Errorf("oid = %v, want %v", gotOID, oid)
	}
	if maxAPDU != 1476 {
		t.Errorf("maxAPDU = %d, want 1476", maxAPDU)
	}
	if seg != SegmentationNone {
		t.Errorf("seg = %v, want SegmentationNone", seg)
	}
	if vendorID != 999 {
		t.Errorf("vendorID = %d, want 999", vendorID)
	}
}

func TestWhoHasRequestByObjectRoundTrip(t *testing.T) {
	oid := NewObjectIdentifier(ObjectTypeAnalogInput, 5)
	body := EncodeWhoHasRequest(&oid, "")

	gotOID, gotName, err := DecodeWhoHasRequest(body)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if gotOID == nil || *gotOID != oid {
		t.Fatalf("oid = %v, want %v", gotOID, oid)
	}
	if gotName != "" {
		t.Errorf("name = %q, want empty", gotName)
	}
}

func TestWhoHasRequestByNameRoundTrip(t *testing.T) {
	body := EncodeWhoHasRequest(nil, "outside-air-temp")

	gotOID, gotName, err := DecodeWhoHasRequest(body)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if gotOID != nil {
		t.Errorf("oid = %v, want nil", gotOID)
	}
	if gotName != "outside-air-temp" {
		t.Errorf("name = %q, want outside-air-temp", gotName)
	}
}
