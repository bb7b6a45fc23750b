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
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// serviceLayer implements LinkHandler on top of a Device, a
// TransactionManager, and the server's event bus. It holds no lock of its
// own: the server always calls into it while holding the server mutex.
type serviceLayer struct {
	device       *Device
	tx           *TransactionManager
	bus          *eventBus
	log          *zap.Logger
	metrics      *Metrics
	maxAPDU      uint32
	segmentation Segmentation

	remotes map[uint32]*Device
}

func newServiceLayer(device *Device, tx *TransactionManager, bus *eventBus, log *zap.Logger, metrics *Metrics) *serviceLayer {
	return &serviceLayer{
		device:       device,
		tx:           tx,
		bus:          bus,
		log:          log,
		metrics:      metrics,
		maxAPDU:      MaxAPDULength,
		segmentation: SegmentationNone,
		remotes:      make(map[uint32]*Device),
	}
}

// OnReadProperty serves an inbound ReadProperty request against the local
// device.
func (s *serviceLayer) OnReadProperty(oid ObjectIdentifier, pid PropertyIdentifier, arrayIndex int32) (Value, *BACnetError) {
	s.metrics.ReadPropertyRequests.Inc()
	obj, err := s.device.objectRef(oid)
	if err != nil {
		s.metrics.ServiceErrors.WithLabelValues(asPacked(err).Class.String()).Inc()
		return nil, asPacked(err)
	}
	prop, err := obj.Property(pid)
	if err != nil {
		s.metrics.ServiceErrors.WithLabelValues(asPacked(err).Class.String()).Inc()
		return nil, asPacked(err)
	}
	value := prop.Value.Clone()
	s.bus.publish(ReadRequestEvent{OID: oid, PID: pid})
	return value, nil
}

// OnWriteProperty serves an inbound WriteProperty request against the
// local device.
func (s *serviceLayer) OnWriteProperty(oid ObjectIdentifier, pid PropertyIdentifier, arrayIndex int32, value Value) *BACnetError {
	s.metrics.WritePropertyRequests.Inc()
	obj, err := s.device.objectRef(oid)
	if err != nil {
		s.metrics.ServiceErrors.WithLabelValues(asPacked(err).Class.String()).Inc()
		return asPacked(err)
	}
	if !obj.IsPropertyRemoteWritable(pid) {
		be := NewBACnetError(ErrorClassProperty, ErrorCodeWriteAccessDenied)
		s.metrics.ServiceErrors.WithLabelValues(be.Class.String()).Inc()
		return be
	}
	if err := obj.WriteProperty(pid, value, true); err != nil {
		s.metrics.ServiceErrors.WithLabelValues(asPacked(err).Class.String()).Inc()
		return asPacked(err)
	}
	s.bus.publish(WriteRequestEvent{OID: oid, PID: pid, Value: value})
	return nil
}

// OnIAm records a newly discovered remote device's identity and address in
// the remote-device registry.
func (s *serviceLayer) OnIAm(addr DeviceAddress, instance uint32, maxAPDU uint32, seg Segmentation, vendorID uint32) {
	s.metrics.IAmReceived.Inc()
	if instance == s.device.Instance() {
		return
	}
	if _, known := s.remotes[instance]; known {
		return
	}
	rd, err := NewDevice(instance, "")
	if err != nil {
		s.log.Warn("discarding i-am for unrepresentable instance", zap.Uint32("instance", instance), zap.Error(err))
		return
	}
	rd.SetAddress(addr)
	devObj, _ := rd.objectRef(rd.DeviceOID())
	_ = devObj.WriteProperty(PropertyVendorIdentifier, NewUnsigned(vendorID), false)
	_ = devObj.WriteProperty(PropertyMaxApduLengthAccepted, NewUnsigned(maxAPDU), false)
	_ = devObj.WriteProperty(PropertySegmentationSupported, NewEnumerated(uint32(seg)), false)
	s.remotes[instance] = rd
	s.bus.publish(IAmEvent{Address: addr, Instance: instance, MaxAPDU: maxAPDU, Segmentation: seg, VendorID: vendorID})
}

// OnWhoHas surfaces an inbound Who-Has as a WhoHasEvent. The request is not
// resolved against the local device, and neither this layer nor UDPLink
// sends an I-Have reply.
func (s *serviceLayer) OnWhoHas(addr DeviceAddress, oid *ObjectIdentifier, name string) {
	s.metrics.WhoHasReceived.Inc()
	s.bus.publish(WhoHasEvent{Address: addr, OID: oid, Name: name})
}

// OnResponse dispatches an inbound ack or error: looks up the transaction
// by link handle, completes it, and publishes the matching event.
func (s *serviceLayer) OnResponse(handle uuid.UUID, value Value, err *BACnetError) {
	t, ok := s.tx.ByHandle(handle)
	if !ok {
		return
	}
	s.metrics.OutboundLatency.Observe(time.Since(t.CreateTime()).Seconds())
	s.metrics.TransactionsCompleted.Inc()
	if err != nil {
		t.setResult(nil, err)
		s.tx.MarkComplete(t)
		s.bus.publish(ErrorEvent{TransactionHandle: handle, Err: err})
		return
	}
	t.setResult(value, nil)
	s.tx.MarkComplete(t)
	switch t.Service() {
	case ServiceReadProperty:
		s.bus.publish(ReadAckEvent{TransactionHandle: handle, Value: value})
	case ServiceWriteProperty:
		s.bus.publish(WriteAckEvent{TransactionHandle: handle})
	}
}

// OnUnsupportedService rejects any service this device does not handle.
func (s *serviceLayer) OnUnsupportedService() RejectReason {
	return RejectReasonUnrecognizedService
}

// RemoteDevice returns a snapshot of the registry entry for a discovered
// remote device.
func (s *serviceLayer) RemoteDevice(instance uint32) (*Device, bool) {
	d, ok := s.remotes[instance]
	if !ok {
		return nil, false
	}
	return d.Clone(), true
}

// RemoteDevices returns a snapshot of every known remote device.
func (s *serviceLayer) RemoteDevices() []*Device {
	out := make([]*Device, 0, len(s.remotes))
	for _, d := range s.remotes {
		out = append(out, d.Clone())
	}
	return out
}

// DeleteRemoteDevice forgets a discovered remote device.
func (s *serviceLayer) DeleteRemoteDevice(instance uint32) {
	delete(s.remotes, instance)
}

// asPacked normalizes any error into a *BACnetError so the link boundary
// always has a packed error word to send.
func asPacked(err error) *BACnetError {
	if be, ok := err.(*BACnetError); ok {
		return be
	}
	return NewBACnetError(ErrorClassProperty, ErrorCodeInvalidDataType)
}
