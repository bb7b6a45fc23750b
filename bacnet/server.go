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
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DoWorkRate is the minimum interval at which the link's elapsed-time
// callback is fired, regardless of the worker tick period (spec.md 4.7).
const DoWorkRate = 5 * time.Millisecond

// Server is the process-wide façade over one local BACnet device: its
// Device object tree, its remote-device registry, outbound transactions,
// and the link collaborator that puts bytes on the wire. A single mutex
// serializes every public operation and the worker tick body; the mutex
// is held across link sends so that transaction allocation and submission
// are atomic with respect to response dispatch.
type Server struct {
	mu sync.Mutex

	cfg     *ServerConfig
	device  *Device
	tx      *TransactionManager
	link    Link
	svc     *serviceLayer
	bus     *eventBus
	metrics *Metrics
	log     *zap.Logger

	started      bool
	stopCh       chan struct{}
	wg           sync.WaitGroup
	lastSlowTick time.Time
}

func newServer(link Link, opts ...ServerOption) (*Server, error) {
	cfg := defaultServerConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	device, err := NewDevice(cfg.DeviceInstance, cfg.DeviceName)
	if err != nil {
		return nil, err
	}
	device.SetAddress(cfg.Address)
	applyDeviceConfig(device, cfg)

	tx := NewTransactionManager()
	bus := newEventBus(256)
	metrics := NewMetrics()
	svc := newServiceLayer(device, tx, bus, cfg.Logger, metrics)

	s := &Server{
		cfg:     cfg,
		device:  device,
		tx:      tx,
		link:    link,
		svc:     svc,
		bus:     bus,
		metrics: metrics,
		log:     cfg.Logger,
	}
	link.SetHandler(svc)
	return s, nil
}

func applyDeviceConfig(d *Device, cfg *ServerConfig) {
	devObj, err := d.objectRef(d.DeviceOID())
	if err != nil {
		return
	}
	set := func(pid PropertyIdentifier, v Value) {
		if v == nil {
			return
		}
		_ = devObj.WriteProperty(pid, v, false)
	}
	set(PropertySystemStatus, NewEnumeratedIn(domainDeviceStatus, uint32(cfg.SystemStatus)))
	if cfg.VendorName != "" {
		set(PropertyVendorName, NewCharacterString(cfg.VendorName))
	}
	set(PropertyVendorIdentifier, NewUnsigned(cfg.VendorID))
	if cfg.ModelName != "" {
		set(PropertyModelName, NewCharacterString(cfg.ModelName))
	}
	if cfg.FirmwareRev != "" {
		set(PropertyFirmwareRevision, NewCharacterString(cfg.FirmwareRev))
	}
	if cfg.SoftwareVer != "" {
		set(PropertyApplicationSoftwareVersion, NewCharacterString(cfg.SoftwareVer))
	}
	if cfg.Location != "" {
		set(PropertyLocation, NewCharacterString(cfg.Location))
	}
	if cfg.Description != "" {
		set(PropertyDescription, NewCharacterString(cfg.Description))
	}
	set(PropertyApduTimeout, NewUnsigned(uint32(cfg.ApduTimeout/time.Millisecond)))
	set(PropertyNumberOfApduRetries, NewUnsigned(uint32(cfg.ApduRetries)))
	set(PropertyDatabaseRevision, NewUnsigned(cfg.DatabaseRevision))
}

// Instance returns the local Device's instance number.
func (s *Server) Instance() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.device.Instance()
}

// MetricsHandle returns this server's Prometheus collector set, for
// callers that want to expose it over HTTP or register it elsewhere.
func (s *Server) MetricsHandle() *Metrics { return s.metrics }

// Events returns the channel of events published by this server. Events
// are always published outside the server mutex by the goroutine that
// produced them finishing its call, so a consumer ranging over this
// channel never blocks a request in flight.
func (s *Server) Events() <-chan Event { return s.bus.Events() }

// Start brings the link up on port and arms the periodic worker.
func (s *Server) Start(port uint16) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return NewBACnetError(ErrorClassDevice, ErrorCodeDeviceBusy)
	}
	if err := s.link.Startup(port); err != nil {
		return err
	}
	s.started = true
	s.stopCh = make(chan struct{})
	s.lastSlowTick = time.Now()
	s.wg.Add(1)
	go s.workerLoop(s.stopCh)
	return nil
}

// Stop tears down the worker and the link.
func (s *Server) Stop() error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	close(s.stopCh)
	s.started = false
	s.mu.Unlock()

	s.wg.Wait()
	return s.link.Stop()
}

func (s *Server) workerLoop(stop <-chan struct{}) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.cfg.ProcessRateMs)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			s.tick(now)
		}
	}
}

func (s *Server) tick(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.link.TickAlways()
	if elapsed := now.Sub(s.lastSlowTick); elapsed >= DoWorkRate {
		s.link.TickElapsed(elapsed)
		s.lastSlowTick = now
	}
	if reaped := s.tx.Cleanup(); reaped > 0 {
		s.metrics.TransactionsExpired.Add(float64(reaped))
	}
	s.metrics.ActiveTransactions.Set(float64(s.tx.Count()))
}

// ReadLocalProperty reads a property of a local object.
func (s *Server) ReadLocalProperty(oid ObjectIdentifier, pid PropertyIdentifier) (Value, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, err := s.device.objectRef(oid)
	if err != nil {
		return nil, err
	}
	prop, err := obj.Property(pid)
	if err != nil {
		return nil, err
	}
	return prop.Value.Clone(), nil
}

// WriteLocalProperty writes a property of a local object from local
// configuration (not a remote WriteProperty request, so the
// remote-writable flag does not apply).
func (s *Server) WriteLocalProperty(oid ObjectIdentifier, pid PropertyIdentifier, v Value) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, err := s.device.objectRef(oid)
	if err != nil {
		return err
	}
	return obj.WriteProperty(pid, v, false)
}

// AddObject creates and registers a new object of the given type.
func (s *Server) AddObject(objType ObjectType, instance uint32, name string) (ObjectIdentifier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, err := NewObject(objType, instance, name)
	if err != nil {
		return ObjectIdentifier{}, err
	}
	if err := s.device.AddObject(obj); err != nil {
		return ObjectIdentifier{}, err
	}
	return obj.OID(), nil
}

// DeleteObject removes an object from the local device.
func (s *Server) DeleteObject(oid ObjectIdentifier) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.device.DeleteObject(oid)
}

// NextInstance returns the next unused instance number for objType.
func (s *Server) NextInstance(objType ObjectType) uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.device.NextInstance(objType)
}

// RemoteDevice returns a discovered remote device by instance.
func (s *Server) RemoteDevice(instance uint32) (*Device, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.svc.RemoteDevice(instance)
}

// RemoteDevices returns every known remote device.
func (s *Server) RemoteDevices() []*Device {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.svc.RemoteDevices()
}

// DeleteRemoteDevice forgets a discovered remote device.
func (s *Server) DeleteRemoteDevice(instance uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.svc.DeleteRemoteDevice(instance)
}

// WhoIs broadcasts a Who-Is request for the given instance range.
// Negative bounds mean unbounded.
func (s *Server) WhoIs(minInstance, maxInstance int32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.link.SendWhoIs(minInstance, maxInstance)
}

// SendReadProperty allocates a transaction for an outbound ReadProperty
// and asks the link to send it, returning the transaction handle used to
// query its eventual outcome. On send failure the transaction is deleted
// and the link's reported error is returned.
func (s *Server) SendReadProperty(deviceInstance uint32, oid ObjectIdentifier, pid PropertyIdentifier, arrayIndex int32) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.tx.Create(ServiceReadProperty)
	s.tx.MarkPending(t)
	s.metrics.TransactionsCreated.Inc()
	s.metrics.ActiveTransactions.Set(float64(s.tx.Count()))
	if err := s.link.SendReadProperty(deviceInstance, oid, pid, arrayIndex, t.Handle()); err != nil {
		s.tx.Delete(t)
		s.metrics.ActiveTransactions.Set(float64(s.tx.Count()))
		return uuid.UUID{}, err
	}
	return t.Handle(), nil
}

// SendWriteProperty allocates a transaction for an outbound WriteProperty
// and asks the link to send it.
func (s *Server) SendWriteProperty(deviceInstance uint32, oid ObjectIdentifier, pid PropertyIdentifier, arrayIndex int32, value Value) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.tx.Create(ServiceWriteProperty)
	s.tx.MarkPending(t)
	s.metrics.TransactionsCreated.Inc()
	s.metrics.ActiveTransactions.Set(float64(s.tx.Count()))
	if err := s.link.SendWriteProperty(deviceInstance, oid, pid, arrayIndex, value, t.Handle()); err != nil {
		s.tx.Delete(t)
		s.metrics.ActiveTransactions.Set(float64(s.tx.Count()))
		return uuid.UUID{}, err
	}
	return t.Handle(), nil
}

// TransactionState returns the lifecycle state of a transaction by handle.
func (s *Server) TransactionState(handle uuid.UUID) (TransactionState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tx.ByHandle(handle)
	if !ok {
		return TransactionDead, false
	}
	return t.State(), true
}

// TransactionValue returns the decoded ack value of a completed
// transaction, if any.
func (s *Server) TransactionValue(handle uuid.UUID) (Value, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tx.ByHandle(handle)
	if !ok {
		return nil, false
	}
	return t.Result(), true
}

// TransactionIsSimpleAck reports whether a transaction completed as a
// simple ack.
func (s *Server) TransactionIsSimpleAck(handle uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tx.ByHandle(handle)
	return ok && t.IsSimpleAck()
}

// TransactionIsError reports whether a transaction completed with an error.
func (s *Server) TransactionIsError(handle uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tx.ByHandle(handle)
	return ok && t.IsError()
}

// ExtendTransaction gives an in-flight or recently completed transaction
// another full live-time or recycle-time budget, deferring its reclaim by
// the next Cleanup pass. Returns false if handle names no known
// transaction.
func (s *Server) ExtendTransaction(handle uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tx.ByHandle(handle)
	if !ok {
		return false
	}
	s.tx.ExtendLife(t)
	return true
}

// DeleteTransaction abandons a transaction.
func (s *Server) DeleteTransaction(handle uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tx.ByHandle(handle); ok {
		s.tx.Delete(t)
	}
}
