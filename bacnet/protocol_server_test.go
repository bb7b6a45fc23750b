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

func TestEncodeSimpleAckDecodesBack(t *testing.T) {
	frame := EncodeSimpleAck(7, ServiceWriteProperty)
	apdu, err := DecodeAPDU(frame)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if apdu.Type != PDUTypeSimpleAck {
		t.Errorf("type = %v, want PDUTypeSimpleAck", apdu.Type)
	}
	if apdu.InvokeID != 7 {
		t.Errorf("invokeID = %d, want 7", apdu.InvokeID)
	}
	if ConfirmedServiceChoice(apdu.Service) != ServiceWriteProperty {
		t.Errorf("service = %d, want ServiceWriteProperty", apdu.Service)
	}
}

func TestEncodeComplexAckDecodesBack(t *testing.T) {
	body := EncodeReadPropertyRequest(NewObjectIdentifier(ObjectTypeAnalogInput, 1), PropertyPresentValue, noArrayIndex)
	frame := EncodeComplexAck(3, ServiceReadProperty, body)

	apdu, err := DecodeAPDU(frame)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if apdu.Type != PDUTypeComplexAck {
		t.Errorf("type = %v, want PDUTypeComplexAck", apdu.Type)
	}
	if apdu.InvokeID != 3 {
		t.Errorf("invokeID = %d, want 3", apdu.InvokeID)
	}
	if len(apdu.Data) != len(body) {
		t.Errorf("data len = %d, want %d", len(apdu.Data), len(body))
	}
}

func TestEncodeErrorRoundTrip(t *testing.T) {
	want := NewBACnetError(ErrorClassProperty, ErrorCodeWriteAccessDenied)
	frame := EncodeError(9, ServiceWriteProperty, want.PackedError())

	apdu, err := DecodeAPDU(frame)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if apdu.Type != PDUTypeError {
		t.Errorf("type = %v, want PDUTypeError", apdu.Type)
	}
	if apdu.InvokeID != 9 {
		t.Errorf("invokeID = %d, want 9", apdu.InvokeID)
	}

	v1, n, err := DecodeApplicationValue(apdu.Data)
	if err != nil {
		t.Fatalf("decode class: %v", err)
	}
	v2, _, err := DecodeApplicationValue(apdu.Data[n:])
	if err != nil {
		t.Fatalf("decode code: %v", err)
	}
	classVal, ok := v1.(*EnumeratedValue)
	if !ok {
		t.Fatalf("class value type = %T", v1)
	}
	codeVal, ok := v2.(*EnumeratedValue)
	if !ok {
		t.Fatalf("code value type = %T", v2)
	}
	got := NewBACnetError(ErrorClass(classVal.Value), ErrorCode(codeVal.Value))
	if got.Class != want.Class || got.Code != want.Code {
		t.Errorf("got %v/%v, want %v/%v", got.Class, got.Code, want.Class, want.Code)
	}
}

func TestEncodeRejectDecodesBack(t *testing.T) {
	frame := EncodeReject(4, RejectReasonInvalidParameterDataType)
	apdu, err := DecodeAPDU(frame)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if apdu.Type != PDUTypeReject {
		t.Errorf("type = %v, want PDUTypeReject", apdu.Type)
	}
	if apdu.InvokeID != 4 {
		t.Errorf("invokeID = %d, want 4", apdu.InvokeID)
	}
}

func TestEncodeAbortServerFlag(t *testing.T) {
	serverFrame := EncodeAbort(1, AbortReasonBufferOverflow, true)
	clientFrame := EncodeAbort(1, AbortReasonBufferOverflow, false)

	if serverFrame[0] == clientFrame[0] {
		t.Error("server and client abort PDUs should set a different low bit")
	}
	apdu, err := DecodeAPDU(serverFrame)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if apdu.Type != PDUTypeAbort {
		t.Errorf("type = %v, want PDUTypeAbort", apdu.Type)
	}
}
