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

func TestTransactionIDsMonotoneAcrossDelete(t *testing.T) {
	m := NewTransactionManager()
	first := m.Create(ServiceReadProperty)
	second := m.Create(ServiceReadProperty)
	if second.ID() <= first.ID() {
		t.Fatalf("second.ID() = %d, want greater than first.ID() = %d", second.ID(), first.ID())
	}
	m.Delete(first)
	m.Delete(second)

	third := m.Create(ServiceReadProperty)
	if third.ID() <= second.ID() {
		t.Errorf("third.ID() = %d, want greater than deleted second.ID() = %d", third.ID(), second.ID())
	}
}

func TestTransactionIDDistinctFromInvokeID(t *testing.T) {
	m := NewTransactionManager()
	// Force the invoke ID counter to wrap well past a uint8 while the
	// transaction id keeps climbing.
	for i := 0; i < 300; i++ {
		tr := m.Create(ServiceReadProperty)
		m.Delete(tr)
	}
	last := m.Create(ServiceReadProperty)
	if last.ID() < 300 {
		t.Errorf("ID() = %d, want a monotone counter that kept growing past 300 creates", last.ID())
	}
}

func TestExtendLifeDefersIdleExpiry(t *testing.T) {
	m := NewTransactionManager()
	tr := m.Create(ServiceReadProperty)
	tr.createTime = tr.createTime.Add(-TransactionLiveTime)
	if !tr.expired(tr.createTime.Add(TransactionLiveTime)) {
		t.Fatal("expected transaction to be expired before ExtendLife")
	}
	m.ExtendLife(tr)
	if tr.expired(tr.createTime) {
		t.Error("expected ExtendLife to reset the live-time clock")
	}
}

func TestExtendLifeDefersCompleteExpiry(t *testing.T) {
	m := NewTransactionManager()
	tr := m.Create(ServiceReadProperty)
	m.MarkComplete(tr)
	tr.doneTime = tr.doneTime.Add(-TransactionRecycleTime)
	if !tr.expired(tr.doneTime.Add(TransactionRecycleTime)) {
		t.Fatal("expected completed transaction to be expired before ExtendLife")
	}
	m.ExtendLife(tr)
	if tr.expired(tr.doneTime) {
		t.Error("expected ExtendLife to reset the recycle-time clock")
	}
}
