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
)

// TransactionState is the lifecycle state of a server-originated
// confirmed-service transaction.
type TransactionState int

const (
	TransactionIdle TransactionState = iota
	TransactionPending
	TransactionComplete
	TransactionDead
)

func (s TransactionState) String() string {
	switch s {
	case TransactionIdle:
		return "idle"
	case TransactionPending:
		return "pending"
	case TransactionComplete:
		return "complete"
	default:
		return "dead"
	}
}

const (
	// TransactionRecycleTime is how long a completed transaction is kept
	// around before it is reclaimed.
	TransactionRecycleTime = 320 * time.Second
	// TransactionLiveTime is how long a transaction may sit unanswered
	// before it is considered dead.
	TransactionLiveTime = 5 * time.Second
)

// Transaction tracks one outstanding confirmed-service exchange: a 1-byte
// invoke ID allocated by the TransactionManager, the service requested,
// and the opaque handle the link layer uses to correlate the eventual
// response back to it. The invoke ID on the wire is assigned by the Link
// (UDPLink keeps its own invoke-ID space).
type Transaction struct {
	mu sync.Mutex

	id         int64
	invokeID   uint8
	handle     uuid.UUID
	service    ConfirmedServiceChoice
	state      TransactionState
	createTime time.Time
	doneTime   time.Time
	result     Value
	resultErr  *BACnetError
}

func newTransaction(id int64, invokeID uint8, service ConfirmedServiceChoice) *Transaction {
	return &Transaction{
		id:         id,
		invokeID:   invokeID,
		handle:     uuid.New(),
		service:    service,
		state:      TransactionIdle,
		createTime: time.Now(),
	}
}

// ID returns the transaction's manager-assigned identifier: monotonically
// increasing across the life of the process, and never reused even after
// the transaction is deleted. Unlike InvokeID, which is a 1-byte value
// recycled as soon as it frees up, this id only ever grows.
func (t *Transaction) ID() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.id
}

// InvokeID returns the invoke ID the TransactionManager allocated for this
// transaction. It is not the invoke ID UDPLink puts on the wire.
func (t *Transaction) InvokeID() uint8 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.invokeID
}

// Handle returns the transaction's opaque link-handle, used to correlate
// a response arriving through the Link collaborator back to this
// transaction.
func (t *Transaction) Handle() uuid.UUID {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.handle
}

// Service returns the confirmed service this transaction represents.
func (t *Transaction) Service() ConfirmedServiceChoice {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.service
}

// State returns the transaction's current lifecycle state.
func (t *Transaction) State() TransactionState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// CreateTime returns when the transaction was created.
func (t *Transaction) CreateTime() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.createTime
}

func (t *Transaction) setPending() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = TransactionPending
}

func (t *Transaction) setComplete() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = TransactionComplete
	t.doneTime = time.Now()
}

func (t *Transaction) setDead() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = TransactionDead
	t.doneTime = time.Now()
}

// extendLife resets the clock Cleanup measures this transaction's
// liveness against, giving it another full live-time or recycle-time
// budget from now.
func (t *Transaction) extendLife() {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch t.state {
	case TransactionComplete, TransactionDead:
		t.doneTime = time.Now()
	default:
		t.createTime = time.Now()
	}
}

// setResult records the outcome of a completed transaction.
func (t *Transaction) setResult(v Value, err *BACnetError) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.result = v
	t.resultErr = err
}

// Result returns the decoded ack value, or nil if the transaction ended
// in error or has not completed.
func (t *Transaction) Result() Value {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.result
}

// ResultError returns the error the transaction ended with, or nil.
func (t *Transaction) ResultError() *BACnetError {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.resultErr
}

// IsSimpleAck reports whether the transaction completed with a simple ack
// (a successful WriteProperty, which carries no value).
func (t *Transaction) IsSimpleAck() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state == TransactionComplete && t.resultErr == nil && t.service == ServiceWriteProperty
}

// IsError reports whether the transaction completed with an error PDU.
func (t *Transaction) IsError() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.resultErr != nil
}

// expired reports whether now has passed this transaction's recycle
// deadline, measured from completion for Complete transactions and from
// creation for anything still live past its live-time budget.
func (t *Transaction) expired(now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch t.state {
	case TransactionComplete, TransactionDead:
		return now.Sub(t.doneTime) >= TransactionRecycleTime
	default:
		return now.Sub(t.createTime) >= TransactionLiveTime
	}
}

// TransactionManager creates, indexes, and reaps confirmed-service
// transactions. It is safe for concurrent use; the server calls Cleanup
// periodically from its worker tick.
type TransactionManager struct {
	mu       sync.Mutex
	byInvoke map[uint8]*Transaction
	byHandle map[uuid.UUID]*Transaction
	invokeID uint8
	nextID   int64
}

// NewTransactionManager returns an empty manager.
func NewTransactionManager() *TransactionManager {
	return &TransactionManager{
		byInvoke: make(map[uint8]*Transaction),
		byHandle: make(map[uuid.UUID]*Transaction),
	}
}

func (m *TransactionManager) nextInvokeID() uint8 {
	for {
		m.invokeID++
		if _, taken := m.byInvoke[m.invokeID]; !taken {
			return m.invokeID
		}
	}
}

// Create allocates a new Idle transaction for service, assigns it a free
// invoke ID, and indexes it by both invoke ID and link handle.
func (m *TransactionManager) Create(service ConfirmedServiceChoice) *Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	t := newTransaction(m.nextID, m.nextInvokeID(), service)
	m.byInvoke[t.invokeID] = t
	m.byHandle[t.handle] = t
	return t
}

// Delete removes a transaction from both indexes.
func (m *TransactionManager) Delete(t *Transaction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byInvoke, t.InvokeID())
	delete(m.byHandle, t.Handle())
}

// ByInvokeID looks up a transaction by APDU invoke ID.
func (m *TransactionManager) ByInvokeID(id uint8) (*Transaction, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.byInvoke[id]
	return t, ok
}

// ByHandle looks up a transaction by its link handle.
func (m *TransactionManager) ByHandle(h uuid.UUID) (*Transaction, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.byHandle[h]
	return t, ok
}

// MarkPending transitions t from Idle to Pending.
func (m *TransactionManager) MarkPending(t *Transaction) { t.setPending() }

// MarkComplete transitions t to Complete and starts its recycle clock.
func (m *TransactionManager) MarkComplete(t *Transaction) { t.setComplete() }

// MarkDead transitions t to Dead and starts its recycle clock.
func (m *TransactionManager) MarkDead(t *Transaction) { t.setDead() }

// ExtendLife gives t another full live-time (if still Idle/Pending) or
// recycle-time (if Complete/Dead) budget, so Cleanup does not reap it on
// its next pass. Used when a caller knows more traffic for t is still
// expected, e.g. while waiting on a segmented response.
func (m *TransactionManager) ExtendLife(t *Transaction) { t.extendLife() }

// Cleanup reaps transactions that have outlived their live-time (if
// still Idle/Pending) or recycle-time (if Complete/Dead). Returns the
// number reaped.
func (m *TransactionManager) Cleanup() int {
	now := time.Now()
	m.mu.Lock()
	defer m.mu.Unlock()
	var dead []*Transaction
	for _, t := range m.byInvoke {
		if t.expired(now) {
			dead = append(dead, t)
		}
	}
	for _, t := range dead {
		delete(m.byInvoke, t.InvokeID())
		delete(m.byHandle, t.Handle())
	}
	return len(dead)
}

// Count returns the number of live transactions.
func (m *TransactionManager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byInvoke)
}
