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
	"time"

	"github.com/gattkit/gattman/gattact/attdefs"
	"github.com/gattkit/gattman/gattact/gattutil"
)

// Accumulator for one in-flight request: an ordered sequence of decoded
// result items plus a completion status, paired with a waitable event.
//
// A pendingRsp is written exclusively by the event loop goroutine (via
// the session's completion callback) and read by the waiting caller only
// after a successful wait.  On timeout the caller cancels the correlation
// handle before abandoning the response; session cancellation is
// synchronous, so a late completion can never touch an abandoned
// response.
type pendingRsp struct {
	ev     *WaitableEvent
	status uint8

	data [][]byte
	svcs []attdefs.Service
	chrs []attdefs.Characteristic
	mtu  uint16
}

func newPendingRsp() *pendingRsp {
	return &pendingRsp{
		ev: NewWaitableEvent(),
	}
}

func (r *pendingRsp) addData(value []byte) {
	r.data = append(r.data, value)
}

// Completes the response.  Effective exactly once.
func (r *pendingRsp) notify(status uint8) {
	r.status = status
	r.ev.Signal(status)
}

func (r *pendingRsp) wait(timeout time.Duration) bool {
	return r.ev.Wait(timeout)
}

// Translates a non-zero ATT status into a descriptive error.
func (r *pendingRsp) statusErr() error {
	if r.status == 0 {
		return nil
	}

	return gattutil.FmtAttError(r.status,
		"Characteristic value/descriptor operation failed: %s (%d)",
		attdefs.AttEcodeToString(r.status), r.status)
}
