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

import "github.com/google/uuid"

// Event is implemented by every value published on a Server's event
// channel. Events are always published outside the server mutex, after
// the operation that produced them has released it.
type Event interface {
	eventName() string
}

// ReadRequestEvent is published after a local ReadProperty request from
// a remote device has been served.
type ReadRequestEvent struct {
	OID ObjectIdentifier
	PID PropertyIdentifier
}

func (ReadRequestEvent) eventName() string { return "read-request" }

// WriteRequestEvent is published after a local WriteProperty request
// from a remote device has been applied.
type WriteRequestEvent struct {
	OID   ObjectIdentifier
	PID   PropertyIdentifier
	Value Value
}

func (WriteRequestEvent) eventName() string { return "write-request" }

// ReadAckEvent is published when an outbound ReadProperty transaction
// completes successfully.
type ReadAckEvent struct {
	TransactionHandle uuid.UUID
	OID               ObjectIdentifier
	PID               PropertyIdentifier
	Value             Value
}

func (ReadAckEvent) eventName() string { return "read-ack" }

// WriteAckEvent is published when an outbound WriteProperty transaction
// completes successfully.
type WriteAckEvent struct {
	TransactionHandle uuid.UUID
}

func (WriteAckEvent) eventName() string { return "write-ack" }

// ErrorEvent is published when an outbound transaction completes with an
// error PDU.
type ErrorEvent struct {
	TransactionHandle uuid.UUID
	Err               *BACnetError
}

func (ErrorEvent) eventName() string { return "error" }

// IAmEvent is published when an I-Am is received and processed into the
// remote-device registry.
type IAmEvent struct {
	Address  DeviceAddress
	Instance uint32
	MaxAPDU  uint32
	Segmentation
	VendorID uint32
}

func (IAmEvent) eventName() string { return "i-am" }

// WhoHasEvent is published when a Who-Has is received.
type WhoHasEvent struct {
	Address DeviceAddress
	OID     *ObjectIdentifier
	Name    string
}

func (WhoHasEvent) eventName() string { return "who-has" }

// eventBus fans events out to a single buffered channel. The server
// publishes to it from a goroutine that never holds the server mutex, so a
// slow consumer cannot stall a request in flight; once the buffer is full
// additional events are dropped rather than blocking the publisher.
type eventBus struct {
	ch chan Event
}

func newEventBus(buffer int) *eventBus {
	return &eventBus{ch: make(chan Event, buffer)}
}

// Events returns the channel consumers should range over.
func (b *eventBus) Events() <-chan Event { return b.ch }

func (b *eventBus) publish(e Event) {
	select {
	case b.ch <- e:
	default:
	}
}

func (b *eventBus) close() { close(b.ch) }
