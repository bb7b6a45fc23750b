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
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/edgeo/bacnet-server/internal/transport"
)

// apduEncodedMaxLength is the standard BACnet/IP max-APDU-length code for
// 1476 bytes, the ceiling this server advertises in the confirmed requests
// it sends.
const apduEncodedMaxLength = 5

type pendingOutbound struct {
	handle  uuid.UUID
	service ConfirmedServiceChoice
	addr    *net.UDPAddr
}

// UDPLink is the concrete bacnet.Link over BACnet/IP: BVLC framing over a
// UDP socket, with its own invoke-ID space and a device-instance address
// book learned from I-Am traffic. It owns no business logic; every
// decoded request is handed to the registered LinkHandler, and every
// handler result is re-encoded and put back on the wire.
type UDPLink struct {
	mu sync.Mutex

	transport        *transport.UDPTransport
	port             uint16
	broadcastAddr    string
	handler          LinkHandler
	log              *zap.Logger

	invokeID    uint8
	pending     map[uint8]pendingOutbound
	addrByInst  map[uint32]*net.UDPAddr

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewUDPLink builds a Link bound to localAddr (host:port or just ":port")
// that broadcasts to broadcastAddr (empty for the limited broadcast).
func NewUDPLink(localAddr, broadcastAddr string, log *zap.Logger) *UDPLink {
	if log == nil {
		log = zap.NewNop()
	}
	return &UDPLink{
		transport:     transport.NewUDPTransport(localAddr),
		broadcastAddr: broadcastAddr,
		log:           log,
		pending:       make(map[uint8]pendingOutbound),
		addrByInst:    make(map[uint32]*net.UDPAddr),
	}
}

func (l *UDPLink) SetHandler(h LinkHandler) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.handler = h
}

// Startup opens the socket on the localAddr given to NewUDPLink and starts
// the receive goroutine. port is not used for binding; it is the
// destination port of Who-Is broadcasts.
func (l *UDPLink) Startup(port uint16) error {
	l.mu.Lock()
	l.port = port
	l.mu.Unlock()
	if err := l.transport.Open(context.Background()); err != nil {
		return err
	}
	l.stopCh = make(chan struct{})
	l.wg.Add(1)
	go l.receiveLoop()
	return nil
}

func (l *UDPLink) Stop() error {
	if l.stopCh != nil {
		close(l.stopCh)
	}
	l.wg.Wait()
	return l.transport.Close()
}

// receiveLoop drains the socket in the background on its own goroutine,
// polling with DrainOne and sleeping briefly whenever nothing is queued so
// that it notices Stop. TickAlways does no work and performs no I/O.
func (l *UDPLink) receiveLoop() {
	defer l.wg.Done()
	for {
		select {
		case <-l.stopCh:
			return
		default:
		}
		data, addr, err := l.transport.DrainOne()
		if err != nil {
			if errors.Is(err, transport.ErrWouldBlock) {
				time.Sleep(time.Millisecond)
				continue
			}
			if l.transport.IsClosed() {
				return
			}
			l.log.Warn("udp receive failed", zap.Error(err))
			continue
		}
		l.dispatch(data, addr)
	}
}

// TickAlways and TickElapsed exist to satisfy Link; datagram processing
// happens on the receive goroutine rather than the server's tick, so
// neither does work here. TickElapsed is the hook a future segmentation
// or retry timer would use.
func (l *UDPLink) TickAlways()                       {}
func (l *UDPLink) TickElapsed(elapsed time.Duration) {}

func (l *UDPLink) dispatch(data []byte, addr *net.UDPAddr) {
	bvlc, err := DecodeBVLC(data)
	if err != nil || len(data) < 4 {
		l.log.Debug("dropping malformed bvlc frame", zap.Error(err))
		return
	}
	var npduBytes []byte
	switch bvlc.Function {
	case BVLCOriginalUnicastNPDU, BVLCOriginalBroadcastNPDU, BVLCForwardedNPDU:
		npduBytes = data[4:]
	default:
		return
	}

	npdu, offset, err := DecodeNPDU(npduBytes)
	if err != nil {
		l.log.Debug("dropping malformed npdu", zap.Error(err))
		return
	}
	if npdu.Control&NPDUControlNetworkLayerMessage != 0 {
		return // network-layer messages (router discovery etc.) are out of scope
	}
	apduBytes := npduBytes[offset:]

	apdu, err := DecodeAPDU(apduBytes)
	if err != nil {
		l.log.Debug("dropping malformed apdu", zap.Error(err))
		return
	}

	l.mu.Lock()
	handler := l.handler
	l.mu.Unlock()
	if handler == nil {
		return
	}

	switch apdu.Type {
	case PDUTypeConfirmedRequest:
		l.handleConfirmedRequest(handler, apdu, addr)
	case PDUTypeUnconfirmedRequest:
		l.handleUnconfirmedRequest(handler, apdu, addr)
	case PDUTypeSimpleAck:
		l.handleSimpleAck(handler, apdu)
	case PDUTypeComplexAck:
		l.handleComplexAck(handler, apdu)
	case PDUTypeError:
		l.handleErrorAck(handler, apdu)
	case PDUTypeReject, PDUTypeAbort:
		l.handleRejectOrAbort(handler, apdu)
	}
}

func (l *UDPLink) handleConfirmedRequest(handler LinkHandler, apdu *APDU, addr *net.UDPAddr) {
	service := ConfirmedServiceChoice(apdu.Service)
	var ackBody []byte
	var packedErr *BACnetError

	switch service {
	case ServiceReadProperty:
		oid, pid, idx, err := DecodeReadPropertyRequest(apdu.Data)
		if err != nil {
			l.sendReject(addr, apdu.InvokeID, RejectReasonMissingRequiredParameter)
			return
		}
		value, berr := handler.OnReadProperty(oid, pid, idx)
		if berr != nil {
			packedErr = berr
			break
		}
		ackBody = EncodeReadPropertyAck(oid, pid, idx, value)
	case ServiceWriteProperty:
		oid, pid, idx, value, _, err := DecodeWritePropertyRequest(apdu.Data)
		if err != nil {
			l.sendReject(addr, apdu.InvokeID, RejectReasonMissingRequiredParameter)
			return
		}
		if berr := handler.OnWriteProperty(oid, pid, idx, value); berr != nil {
			packedErr = berr
			break
		}
	default:
		reason := handler.OnUnsupportedService()
		l.sendReject(addr, apdu.InvokeID, reason)
		return
	}

	if packedErr != nil {
		frame := l.frameUnicast(EncodeError(apdu.InvokeID, service, packedErr.PackedError()))
		l.sendTo(addr, frame)
		return
	}
	if ackBody != nil {
		frame := l.frameUnicast(EncodeComplexAck(apdu.InvokeID, service, ackBody))
		l.sendTo(addr, frame)
		return
	}
	frame := l.frameUnicast(EncodeSimpleAck(apdu.InvokeID, service))
	l.sendTo(addr, frame)
}

// handleUnconfirmedRequest dispatches the two inbound unconfirmed services
// this device acts on. A received Who-Is is not one of them: this device
// only sends Who-Is and never answers one, so it is silently ignored here,
// same as any other unconfirmed service the switch doesn't name.
func (l *UDPLink) handleUnconfirmedRequest(handler LinkHandler, apdu *APDU, addr *net.UDPAddr) {
	switch UnconfirmedServiceChoice(apdu.Service) {
	case ServiceIAm:
		deviceOID, maxAPDU, seg, vendorID, err := DecodeIAmRequest(apdu.Data)
		if err != nil {
			return
		}
		l.mu.Lock()
		l.addrByInst[deviceOID.Instance] = addr
		l.mu.Unlock()
		handler.OnIAm(l.remoteAddress(addr), deviceOID.Instance, maxAPDU, seg, vendorID)
	case ServiceWhoHas:
		oid, name, err := DecodeWhoHasRequest(apdu.Data)
		if err != nil {
			return
		}
		handler.OnWhoHas(l.remoteAddress(addr), oid, name)
	}
}

func (l *UDPLink) handleSimpleAck(handler LinkHandler, apdu *APDU) {
	handle, ok := l.takePending(apdu.InvokeID)
	if !ok {
		return
	}
	handler.OnResponse(handle, nil, nil)
}

func (l *UDPLink) handleComplexAck(handler LinkHandler, apdu *APDU) {
	handle, ok := l.takePending(apdu.InvokeID)
	if !ok {
		return
	}
	_, _, _, value, err := DecodeReadPropertyAck(apdu.Data)
	if err != nil {
		handler.OnResponse(handle, nil, NewBACnetError(ErrorClassProperty, ErrorCodeInvalidDataType))
		return
	}
	handler.OnResponse(handle, value, nil)
}

func (l *UDPLink) handleErrorAck(handler LinkHandler, apdu *APDU) {
	handle, ok := l.takePending(apdu.InvokeID)
	if !ok {
		return
	}
	v1, n, err := DecodeApplicationValue(apdu.Data)
	if err != nil {
		handler.OnResponse(handle, nil, NewBACnetError(ErrorClassProperty, ErrorCodeInvalidDataType))
		return
	}
	v2, _, err := DecodeApplicationValue(apdu.Data[n:])
	if err != nil {
		handler.OnResponse(handle, nil, NewBACnetError(ErrorClassProperty, ErrorCodeInvalidDataType))
		return
	}
	classVal, ok1 := v1.(*EnumeratedValue)
	codeVal, ok2 := v2.(*EnumeratedValue)
	if !ok1 || !ok2 {
		handler.OnResponse(handle, nil, NewBACnetError(ErrorClassProperty, ErrorCodeInvalidDataType))
		return
	}
	handler.OnResponse(handle, nil, NewBACnetError(ErrorClass(classVal.Value), ErrorCode(codeVal.Value)))
}

func (l *UDPLink) handleRejectOrAbort(handler LinkHandler, apdu *APDU) {
	handle, ok := l.takePending(apdu.InvokeID)
	if !ok {
		return
	}
	handler.OnResponse(handle, nil, NewBACnetError(ErrorClassDevice, ErrorCodeDeviceBusy))
}

func (l *UDPLink) takePending(invokeID uint8) (uuid.UUID, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.pending[invokeID]
	if !ok {
		return uuid.UUID{}, false
	}
	delete(l.pending, invokeID)
	return p.handle, true
}

func (l *UDPLink) remoteAddress(addr *net.UDPAddr) DeviceAddress {
	return NewLocalAddress(addr.IP, uint16(addr.Port))
}

func (l *UDPLink) nextInvokeID() uint8 {
	for {
		l.invokeID++
		if _, taken := l.pending[l.invokeID]; !taken {
			return l.invokeID
		}
	}
}

func (l *UDPLink) frameUnicast(apdu []byte) []byte {
	npdu := EncodeNPDU(false, NPDUControlPriorityNormal)
	frame := append(npdu, apdu...)
	bvlc := EncodeBVLC(BVLCOriginalUnicastNPDU, len(frame))
	return append(bvlc, frame...)
}

func (l *UDPLink) frameBroadcast(apdu []byte) []byte {
	npdu := EncodeNPDU(false, NPDUControlPriorityNormal)
	frame := append(npdu, apdu...)
	bvlc := EncodeBVLC(BVLCOriginalBroadcastNPDU, len(frame))
	return append(bvlc, frame...)
}

func (l *UDPLink) sendTo(addr *net.UDPAddr, frame []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := l.transport.Send(ctx, addr, frame); err != nil {
		l.log.Warn("udp send failed", zap.Error(err))
	}
}

func (l *UDPLink) SendWhoIs(minInstance, maxInstance int32) error {
	body := EncodeWhoIsRequest(minInstance, maxInstance)
	frame := l.frameBroadcast(EncodeUnconfirmedRequest(ServiceWhoIs, body))
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := l.transport.Broadcast(ctx, l.broadcastAddr, int(l.port), frame); err != nil {
		return NewBACnetError(ErrorClassDevice, ErrorCodeDeviceBusy)
	}
	return nil
}

func (l *UDPLink) resolve(deviceInstance uint32) (*net.UDPAddr, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	addr, ok := l.addrByInst[deviceInstance]
	if !ok {
		return nil, NewBACnetError(ErrorClassObject, ErrorCodeUnknownObject)
	}
	return addr, nil
}

func (l *UDPLink) SendReadProperty(deviceInstance uint32, oid ObjectIdentifier, pid PropertyIdentifier, arrayIndex int32, handle uuid.UUID) error {
	addr, err := l.resolve(deviceInstance)
	if err != nil {
		return err
	}
	l.mu.Lock()
	id := l.nextInvokeID()
	l.pending[id] = pendingOutbound{handle: handle, service: ServiceReadProperty, addr: addr}
	l.mu.Unlock()

	body := EncodeReadPropertyRequest(oid, pid, arrayIndex)
	apdu := EncodeConfirmedRequest(id, ServiceReadProperty, body, 0, apduEncodedMaxLength)
	l.sendTo(addr, l.frameUnicast(apdu))
	return nil
}

func (l *UDPLink) SendWriteProperty(deviceInstance uint32, oid ObjectIdentifier, pid PropertyIdentifier, arrayIndex int32, value Value, handle uuid.UUID) error {
	addr, err := l.resolve(deviceInstance)
	if err != nil {
		return err
	}
	l.mu.Lock()
	id := l.nextInvokeID()
	l.pending[id] = pendingOutbound{handle: handle, service: ServiceWriteProperty, addr: addr}
	l.mu.Unlock()

	body := EncodeWritePropertyRequest(oid, pid, arrayIndex, value, 0)
	apdu := EncodeConfirmedRequest(id, ServiceWriteProperty, body, 0, apduEncodedMaxLength)
	l.sendTo(addr, l.frameUnicast(apdu))
	return nil
}

func (l *UDPLink) sendReject(addr *net.UDPAddr, invokeID uint8, reason RejectReason) {
	l.sendTo(addr, l.frameUnicast(EncodeReject(invokeID, reason)))
}
