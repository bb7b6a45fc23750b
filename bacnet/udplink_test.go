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
	"net"
	"testing"

	"go.uber.org/zap"
)

func newTestLink() *UDPLink {
	return NewUDPLink(":0", "", zap.NewNop())
}

func TestUDPLinkResolveUnknownInstance(t *testing.T) {
	l := newTestLink()
	if _, err := l.resolve(999); err == nil {
		t.Fatal("expected error resolving an unknown device instance")
	}
}

func TestUDPLinkResolveKnownInstance(t *testing.T) {
	l := newTestLink()
	addr := &net.UDPAddr{IP: net.ParseIP("192.0.2.1"), Port: 47808}
	l.addrByInst[260001] = addr

	got, err := l.resolve(260001)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got != addr {
		t.Errorf("got %v, want %v", got, addr)
	}
}

func TestUDPLinkNextInvokeIDSkipsPending(t *testing.T) {
	l := newTestLink()
	l.invokeID = 4
	l.pending[5] = pendingOutbound{}

	id := l.nextInvokeID()
	if id != 6 {
		t.Errorf("nextInvokeID = %d, want 6 (skipping the pending 5)", id)
	}
}

func TestUDPLinkTakePendingRemovesEntry(t *testing.T) {
	l := newTestLink()
	want := pendingOutbound{service: ServiceReadProperty}
	l.pending[1] = want

	_, ok := l.takePending(1)
	if !ok {
		t.Fatal("expected to find pending entry")
	}
	if _, ok := l.pending[1]; ok {
		t.Error("takePending should remove the entry")
	}
	if _, ok := l.takePending(1); ok {
		t.Error("second takePending for the same invoke ID should miss")
	}
}

func TestUDPLinkSendReadPropertyUnresolvedDevice(t *testing.T) {
	l := newTestLink()
	var handle [16]byte
	err := l.SendReadProperty(1234, NewObjectIdentifier(ObjectTypeAnalogInput, 1), PropertyPresentValue, noArrayIndex, handle)
	if err == nil {
		t.Fatal("expected error sending to an unresolved device instance")
	}
}
