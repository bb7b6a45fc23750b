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

func TestEncodeApplicationValueRoundTrip(t *testing.T) {
	cases := []Value{
		NewBoolean(true),
		NewUnsigned(42),
		NewInteger(-17),
		NewReal(98.6),
		NewDouble(3.14159),
		NewCharacterString("outside-air-temp"),
		NewEnumerated(2),
		NewObjectIdentifierValue(NewObjectIdentifier(ObjectTypeAnalogInput, 1)),
	}

	for _, want := range cases {
		encoded := EncodeApplicationValue(want)
		got, n, err := DecodeApplicationValue(encoded)
		if err != nil {
			t.Fatalf("%v: decode failed: %v", want.Type(), err)
		}
		if n != len(encoded) {
			t.Errorf("%v: consumed %d bytes, want %d", want.Type(), n, len(encoded))
		}
		if got.Type() != want.Type() {
			t.Errorf("type = %v, want %v", got.Type(), want.Type())
		}
	}
}

func TestDecodeApplicationValueTrailingBytes(t *testing.T) {
	a := EncodeApplicationValue(NewUnsigned(1))
	b := EncodeApplicationValue(NewUnsigned(2))
	buf := append(append([]byte{}, a...), b...)

	first, n, err := DecodeApplicationValue(buf)
	if err != nil {
		t.Fatalf("decode first: %v", err)
	}
	second, _, err := DecodeApplicationValue(buf[n:])
	if err != nil {
		t.Fatalf("decode second: %v", err)
	}

	fv, ok := first.(*UnsignedValue)
	if !ok || fv.Value != 1 {
		t.Errorf("first = %#v, want UnsignedValue(1)", first)
	}
	sv, ok := second.(*UnsignedValue)
	if !ok || sv.Value != 2 {
		t.Errorf("second = %#v, want UnsignedValue(2)", second)
	}
}

func TestDecodeApplicationValueWrongClass(t *testing.T) {
	context := EncodeContextUnsigned(0, 5)
	if _, _, err := DecodeApplicationValue(context); err == nil {
		t.Error("expected error decoding a context-tagged value as application-tagged")
	}
}

func TestDecodeApplicationValueTruncated(t *testing.T) {
	encoded := EncodeApplicationValue(NewCharacterString("too long for the buffer"))
	if _, _, err := DecodeApplicationValue(encoded[:2]); err == nil {
		t.Error("expected error decoding a truncated buffer")
	}
}
