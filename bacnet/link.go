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
)

// Link is the external collaborator boundary: everything the server needs
// from the network layer, and everything the network layer needs to call
// back into the server. A Link owns BVLC/NPDU framing, segmentation, and
// BBMD participation; the server never touches a socket directly.
type Link interface {
	// Startup brings the link up on port. Stop tears it down.
	Startup(port uint16) error
	Stop() error

	// TickAlways is invoked on every worker tick. TickElapsed is invoked
	// at least every DoWorkRate with the real elapsed time since the
	// previous call, for link-internal timeout bookkeeping.
	TickAlways()
	TickElapsed(elapsed time.Duration)

	// SendWhoIs broadcasts a Who-Is for the given instance range. A
	// negative bound means unbounded.
	SendWhoIs(minInstance, maxInstance int32) error

	// SendReadProperty and SendWriteProperty submit an outbound confirmed
	// request to deviceInstance, tagged with handle so the eventual
	// response can be correlated back to a Transaction. They return nil
	// on successful submission or a *BACnetError on immediate failure.
	// UDPLink reports only an unknown deviceInstance this way; it logs a
	// failed socket write and returns nil.
	SendReadProperty(deviceInstance uint32, oid ObjectIdentifier, pid PropertyIdentifier, arrayIndex int32, handle uuid.UUID) error
	SendWriteProperty(deviceInstance uint32, oid ObjectIdentifier, pid PropertyIdentifier, arrayIndex int32, value Value, handle uuid.UUID) error

	// SetHandler registers the service layer that receives inbound
	// traffic. Called once, before Startup.
	SetHandler(h LinkHandler)
}

// LinkHandler receives inbound traffic and outbound-transaction
// completions from a Link. Implemented by the service layer.
type LinkHandler interface {
	OnIAm(addr DeviceAddress, instance uint32, maxAPDU uint32, seg Segmentation, vendorID uint32)
	OnWhoHas(addr DeviceAddress, oid *ObjectIdentifier, name string)
	OnReadProperty(oid ObjectIdentifier, pid PropertyIdentifier, arrayIndex int32) (Value, *BACnetError)
	OnWriteProperty(oid ObjectIdentifier, pid PropertyIdentifier, arrayIndex int32, value Value) *BACnetError
	OnResponse(handle uuid.UUID, value Value, err *BACnetError)
	OnUnsupportedService() RejectReason
}
