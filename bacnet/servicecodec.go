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

// This file encodes and decodes the confirmed/unconfirmed service bodies
// the Link boundary exchanges: ReadProperty, WriteProperty, Who-Is, I-Am,
// and Who-Has. Everything here operates on the tag primitives in
// protocol.go; it never touches a socket.

// noArrayIndex marks a property-array-index argument as absent.
const noArrayIndex = -1

func decodeContextUnsigned(data []byte, wantTag uint8) (uint32, int, error) {
	tagNum, class, length, headerLen, err := DecodeTagNumber(data)
	if err != nil {
		return 0, 0, err
	}
	if class != TagClassContext || tagNum != wantTag || len(data) < headerLen+length {
		return 0, 0, ErrInvalidAPDU
	}
	return DecodeUnsigned(data[headerLen : headerLen+length]), headerLen + length, nil
}

func decodeContextObjectIdentifier(data []byte, wantTag uint8) (ObjectIdentifier, int, error) {
	tagNum, class, length, headerLen, err := DecodeTagNumber(data)
	if err != nil {
		return ObjectIdentifier{}, 0, err
	}
	if class != TagClassContext || tagNum != wantTag || length != 4 || len(data) < headerLen+4 {
		return ObjectIdentifier{}, 0, ErrInvalidAPDU
	}
	return DecodeObjectIdentifierFromBytes(data[headerLen : headerLen+4]), headerLen + 4, nil
}

func decodeContextCharacterString(data []byte, wantTag uint8) (string, int, error) {
	tagNum, class, length, headerLen, err := DecodeTagNumber(data)
	if err != nil {
		return "", 0, err
	}
	if class != TagClassContext || tagNum != wantTag || len(data) < headerLen+length {
		return "", 0, ErrInvalidAPDU
	}
	return DecodeCharacterString(data[headerLen : headerLen+length]), headerLen + length, nil
}

// peekTag reports the tag number, class, and whether data is empty or
// starts with a closing tag, without consuming anything.
func peekTag(data []byte) (tagNum uint8, class TagClass, isClosing bool, ok bool) {
	if len(data) == 0 {
		return 0, 0, false, false
	}
	tagNum, class, _, _, err := DecodeTagNumber(data)
	if err != nil {
		return 0, 0, false, false
	}
	isClosing = data[0]&0x07 == 0x07 && class == TagClassContext
	return tagNum, class, isClosing, true
}

// EncodeReadPropertyRequest builds a ReadProperty-Request service body.
func EncodeReadPropertyRequest(oid ObjectIdentifier, pid PropertyIdentifier, arrayIndex int32) []byte {
	buf := EncodeContextObjectIdentifier(0, oid)
	buf = append(buf, EncodeContextUnsigned(1, uint32(pid))...)
	if arrayIndex >= 0 {
		buf = append(buf, EncodeContextUnsigned(2, uint32(arrayIndex))...)
	}
	return buf
}

// DecodeReadPropertyRequest parses a ReadProperty-Request service body.
func DecodeReadPropertyRequest(data []byte) (oid ObjectIdentifier, pid PropertyIdentifier, arrayIndex int32, err error) {
	arrayIndex = noArrayIndex
	oid, n, err := decodeContextObjectIdentifier(data, 0)
	if err != nil {
		return oid, 0, arrayIndex, err
	}
	data = data[n:]
	pidVal, n, err := decodeContextUnsigned(data, 1)
	if err != nil {
		return oid, 0, arrayIndex, err
	}
	pid = PropertyIdentifier(pidVal)
	data = data[n:]
	if len(data) > 0 {
		if idx, _, err := decodeContextUnsigned(data, 2); err == nil {
			arrayIndex = int32(idx)
		}
	}
	return oid, pid, arrayIndex, nil
}

// EncodeReadPropertyAck builds a ReadProperty-ACK service body.
func EncodeReadPropertyAck(oid ObjectIdentifier, pid PropertyIdentifier, arrayIndex int32, value Value) []byte {
	buf := EncodeContextObjectIdentifier(0, oid)
	buf = append(buf, EncodeContextUnsigned(1, uint32(pid))...)
	if arrayIndex >= 0 {
		buf = append(buf, EncodeContextUnsigned(2, uint32(arrayIndex))...)
	}
	buf = append(buf, EncodeOpeningTag(3)...)
	buf = append(buf, EncodeApplicationValue(value)...)
	buf = append(buf, EncodeClosingTag(3)...)
	return buf
}

// DecodeReadPropertyAck parses a ReadProperty-ACK service body.
func DecodeReadPropertyAck(data []byte) (oid ObjectIdentifier, pid PropertyIdentifier, arrayIndex int32, value Value, err error) {
	arrayIndex = noArrayIndex
	oid, n, err := decodeContextObjectIdentifier(data, 0)
	if err != nil {
		return oid, 0, arrayIndex, nil, err
	}
	data = data[n:]
	pidVal, n, err := decodeContextUnsigned(data, 1)
	if err != nil {
		return oid, 0, arrayIndex, nil, err
	}
	pid = PropertyIdentifier(pidVal)
	data = data[n:]
	if tagNum, class, _, ok := peekTag(data); ok && class == TagClassContext && tagNum == 2 {
		idx, n, derr := decodeContextUnsigned(data, 2)
		if derr != nil {
			return oid, pid, arrayIndex, nil, derr
		}
		arrayIndex = int32(idx)
		data = data[n:]
	}
	if len(data) < 1 {
		return oid, pid, arrayIndex, nil, ErrInvalidAPDU
	}
	data = data[1:] // opening tag 3
	value, _, err = DecodeApplicationValue(data)
	if err != nil {
		return oid, pid, arrayIndex, nil, err
	}
	return oid, pid, arrayIndex, value, nil
}

// EncodeWritePropertyRequest builds a WriteProperty-Request service body.
// priority of 0 means omit the optional priority field.
func EncodeWritePropertyRequest(oid ObjectIdentifier, pid PropertyIdentifier, arrayIndex int32, value Value, priority uint8) []byte {
	buf := EncodeContextObjectIdentifier(0, oid)
	buf = append(buf, EncodeContextUnsigned(1, uint32(pid))...)
	if arrayIndex >= 0 {
		buf = append(buf, EncodeContextUnsigned(2, uint32(arrayIndex))...)
	}
	buf = append(buf, EncodeOpeningTag(3)...)
	buf = append(buf, EncodeApplicationValue(value)...)
	buf = append(buf, EncodeClosingTag(3)...)
	if priority > 0 {
		buf = append(buf, EncodeContextUnsigned(4, uint32(priority))...)
	}
	return buf
}

// DecodeWritePropertyRequest parses a WriteProperty-Request service body.
func DecodeWritePropertyRequest(data []byte) (oid ObjectIdentifier, pid PropertyIdentifier, arrayIndex int32, value Value, priority uint8, err error) {
	arrayIndex = noArrayIndex
	oid, n, err := decodeContextObjectIdentifier(data, 0)
	if err != nil {
		return oid, 0, arrayIndex, nil, 0, err
	}
	data = data[n:]
	pidVal, n, err := decodeContextUnsigned(data, 1)
	if err != nil {
		return oid, 0, arrayIndex, nil, 0, err
	}
	pid = PropertyIdentifier(pidVal)
	data = data[n:]
	if tagNum, class, _, ok := peekTag(data); ok && class == TagClassContext && tagNum == 2 {
		idx, n, derr := decodeContextUnsigned(data, 2)
		if derr != nil {
			return oid, pid, arrayIndex, nil, 0, derr
		}
		arrayIndex = int32(idx)
		data = data[n:]
	}
	if len(data) < 1 {
		return oid, pid, arrayIndex, nil, 0, ErrInvalidAPDU
	}
	data = data[1:] // opening tag 3
	value, n, err = DecodeApplicationValue(data)
	if err != nil {
		return oid, pid, arrayIndex, nil, 0, err
	}
	data = data[n:]
	if len(data) < 1 {
		return oid, pid, arrayIndex, nil, 0, ErrInvalidAPDU
	}
	data = data[1:] // closing tag 3
	if len(data) > 0 {
		if p, _, err := decodeContextUnsigned(data, 4); err == nil {
			priority = uint8(p)
		}
	}
	return oid, pid, arrayIndex, value, priority, nil
}

// EncodeWhoIsRequest builds a Who-Is-Request. Negative bounds mean the
// optional range is omitted, i.e. "any device".
func EncodeWhoIsRequest(minInstance, maxInstance int32) []byte {
	if minInstance < 0 || maxInstance < 0 {
		return nil
	}
	buf := EncodeContextUnsigned(0, uint32(minInstance))
	buf = append(buf, EncodeContextUnsigned(1, uint32(maxInstance))...)
	return buf
}

// DecodeWhoIsRequest parses a Who-Is-Request; -1 bounds mean unbounded.
func DecodeWhoIsRequest(data []byte) (minInstance, maxInstance int32, err error) {
	minInstance, maxInstance = -1, -1
	if len(data) == 0 {
		return minInstance, maxInstance, nil
	}
	low, n, err := decodeContextUnsigned(data, 0)
	if err != nil {
		return -1, -1, err
	}
	minInstance = int32(low)
	data = data[n:]
	high, _, err := decodeContextUnsigned(data, 1)
	if err != nil {
		return -1, -1, err
	}
	maxInstance = int32(high)
	return minInstance, maxInstance, nil
}

// EncodeIAmRequest builds an I-Am-Request. Every field here is
// application-tagged, per spec: I-Am is not a context-tagged sequence.
func EncodeIAmRequest(deviceOID ObjectIdentifier, maxAPDU uint32, seg Segmentation, vendorID uint32) []byte {
	buf := EncodeObjectIdentifierTag(deviceOID)
	buf = append(buf, EncodeUnsignedTag(maxAPDU)...)
	buf = append(buf, EncodeEnumeratedTag(uint32(seg))...)
	buf = append(buf, EncodeUnsignedTag(vendorID)...)
	return buf
}

// DecodeIAmRequest parses an I-Am-Request.
func DecodeIAmRequest(data []byte) (deviceOID ObjectIdentifier, maxAPDU uint32, seg Segmentation, vendorID uint32, err error) {
	v, n, err := DecodeApplicationValue(data)
	if err != nil {
		return deviceOID, 0, 0, 0, err
	}
	oidVal, ok := v.(*ObjectIdentifierValue)
	if !ok {
		return deviceOID, 0, 0, 0, ErrInvalidAPDU
	}
	deviceOID = oidVal.OID
	data = data[n:]

	v, n, err = DecodeApplicationValue(data)
	if err != nil {
		return deviceOID, 0, 0, 0, err
	}
	maxAPDUVal, ok := v.(*UnsignedValue)
	if !ok {
		return deviceOID, 0, 0, 0, ErrInvalidAPDU
	}
	maxAPDU = maxAPDUVal.Value
	data = data[n:]

	v, n, err = DecodeApplicationValue(data)
	if err != nil {
		return deviceOID, 0, 0, 0, err
	}
	segVal, ok := v.(*EnumeratedValue)
	if !ok {
		return deviceOID, 0, 0, 0, ErrInvalidAPDU
	}
	seg = Segmentation(segVal.Value)
	data = data[n:]

	v, _, err = DecodeApplicationValue(data)
	if err != nil {
		return deviceOID, 0, 0, 0, err
	}
	vendorVal, ok := v.(*UnsignedValue)
	if !ok {
		return deviceOID, 0, 0, 0, ErrInvalidAPDU
	}
	vendorID = vendorVal.Value
	return deviceOID, maxAPDU, seg, vendorID, nil
}

// EncodeWhoHasRequest builds a Who-Has-Request addressed by object
// identifier (when oid is non-nil) or by object name.
func EncodeWhoHasRequest(oid *ObjectIdentifier, name string) []byte {
	var buf []byte
	if oid != nil {
		buf = append(buf, EncodeContextObjectIdentifier(2, *oid)...)
	} else {
		buf = append(buf, EncodeContextTag(3, EncodeCharacterString(name))...)
	}
	return buf
}

// DecodeWhoHasRequest parses a Who-Has-Request's object selector, ignoring
// the optional device-instance-range limits prefix some callers send.
func DecodeWhoHasRequest(data []byte) (oid *ObjectIdentifier, name string, err error) {
	for len(data) > 0 {
		tagNum, class, length, headerLen, derr := DecodeTagNumber(data)
		if derr != nil {
			return nil, "", derr
		}
		if class != TagClassContext || len(data) < headerLen+length {
			return nil, "", ErrInvalidAPDU
		}
		switch tagNum {
		case 2:
			v := DecodeObjectIdentifierFromBytes(data[headerLen : headerLen+4])
			return &v, "", nil
		case 3:
			return nil, DecodeCharacterString(data[headerLen : headerLen+length]), nil
		}
		data = data[headerLen+length:]
	}
	return nil, "", ErrInvalidAPDU
}
