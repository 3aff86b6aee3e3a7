/**
 * Licensed to the Apache Software Foundation (ASF) under one
 * or more contributor license agreements.  See the NOTICE file
 * distributed with this work for additional information
 * regarding copyright ownership.  The ASF licenses this file
 * to you under the Apache License, Version 2.0 (the
 * "License"); you may not use this file except in compliance
 * with the License.  You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing,
 * software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
 * KIND, either express or implied.  See the License for the
 * specific language governing permissions and limitations
 * under the License.
 */

package gatt

import (
	"sync"
	"time"

	"github.com/gattkit/gattman/gattact/gattutil"
)

// A single-shot, re-armable synchronization primitive.  One side signals
// with a status byte; another side blocks with a timeout until signaled.
// Signal is effective at most once per armed period; Reset re-arms.
type WaitableEvent struct {
	ch     chan struct{}
	mtx    sync.Mutex
	status uint8
	set    bool
}

func NewWaitableEvent() *WaitableEvent {
	return &WaitableEvent{
		ch: make(chan struct{}),
	}
}

func (e *WaitableEvent) Signal(status uint8) {
	e.mtx.Lock()
	defer e.mtx.Unlock()

	if e.set {
		return
	}

	e.status = status
	e.set = true
	close(e.ch)
}

// Blocks until the event is signaled or the timeout elapses.  Returns
// false on timeout, without side effects.
func (e *WaitableEvent) Wait(timeout time.Duration) bool {
	e.mtx.Lock()
	ch := e.ch
	e.mtx.Unlock()

	timer := time.NewTimer(timeout)
	select {
	case <-ch:
		gattutil.StopAndDrainTimer(timer)
		return true
	case <-timer.C:
		return false
	}
}

// Only meaningful after a true Wait.
func (e *WaitableEvent) Status() uint8 {
	e.mtx.Lock()
	defer e.mtx.Unlock()

	return e.status
}

func (e *WaitableEvent) Reset() {
	e.mtx.Lock()
	defer e.mtx.Unlock()

	if e.set {
		e.ch = make(chan struct{})
		e.set = false
		e.status = 0
	}
}

// Readiness gate for one connect attempt.  Arm re-arms the gate when a
// new attempt starts; resolve publishes the attempt's outcome (nil when
// the channel came up) and releases every waiter.  Resolving an
// unarmed gate is a no-op, which is what lets the hang-up path and
// Disconnect race a completed connect harmlessly.
type readySignal struct {
	mtx sync.Mutex
	ch  chan struct{}
	err error
}

func (r *readySignal) arm() {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	if r.ch == nil {
		r.ch = make(chan struct{})
		r.err = nil
	}
}

func (r *readySignal) armed() bool {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	return r.ch != nil
}

func (r *readySignal) resolve(outcome error) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	if r.ch != nil {
		r.err = outcome
		close(r.ch)
		r.ch = nil
	}
}

// Blocks until the current attempt resolves.  Returns false on
// deadline; otherwise the attempt's outcome.  An already-resolved gate
// reports its outcome immediately.
func (r *readySignal) wait(timeout time.Duration) (error, bool) {
	r.mtx.Lock()
	ch := r.ch
	r.mtx.Unlock()

	if ch == nil {
		r.mtx.Lock()
		defer r.mtx.Unlock()
		return r.err, true
	}

	timer := time.NewTimer(timeout)
	select {
	case <-ch:
		gattutil.StopAndDrainTimer(timer)
		r.mtx.Lock()
		defer r.mtx.Unlock()
		return r.err, true

	case <-timer.C:
		return nil, false
	}
}
