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

package att

import (
	"github.com/gattkit/gattman/gattact/attdefs"
	"github.com/gattkit/gattman/gattact/xport"
)

// Correlation handle linking a sent request to its eventual asynchronous
// completion.  Returned by every request-issuing session operation.
type ReqId uint32

// Returned when the send could not be initiated; no completion callback
// will ever fire for it.
const REQ_ID_NONE ReqId = 0

// Completion callbacks.  All of them run on the event loop goroutine and
// must return quickly.  A non-zero status is an ATT error code
// (attdefs.ATT_ECODE_*); the payload arguments are only valid for
// status 0.
type ReadCb func(status uint8, value []byte)
type ReadByUuidCb func(status uint8, values [][]byte)
type WriteCb func(status uint8)
type MtuCb func(status uint8, mtu uint16)
type DiscSvcsCb func(status uint8, svcs []attdefs.Service)
type DiscChrsCb func(status uint8, chrs []attdefs.Characteristic)

// Handler for unsolicited server-initiated PDUs, registered per opcode
// (notify / indicate).  Runs on the event loop goroutine.
type NotifyFn func(handle uint16, data []byte)

// One attribute protocol session over an established channel.
//
// A Session encodes and sends attribute PDUs and decodes the peer's
// completions; it performs no waiting of its own.  Request methods return
// REQ_ID_NONE when the send could not be initiated.  Cancel is
// synchronous: once it returns, the cancelled request's callback is
// guaranteed not to fire.  Dispatch is only ever called from the event
// loop goroutine.
type Session interface {
	ReadByHandle(handle uint16, cb ReadCb) ReqId
	ReadByUuid(startHandle uint16, endHandle uint16, uuid attdefs.Uuid,
		cb ReadByUuidCb) ReqId
	WriteByHandle(handle uint16, value []byte, cb WriteCb) ReqId

	// Fire-and-forget write command; no response, no correlation handle.
	WriteCmd(handle uint16, value []byte) error

	ExchangeMtu(mtu uint16, cb MtuCb) ReqId
	DiscoverPrimary(cb DiscSvcsCb) ReqId

	// A nil uuid means no filter.
	DiscoverChrs(startHandle uint16, endHandle uint16, uuid *attdefs.Uuid,
		cb DiscChrsCb) ReqId

	// Sends an empty confirmation PDU acknowledging an indication.
	Confirm() error

	Cancel(id ReqId)
	SetNotifyHandler(opcode uint8, fn NotifyFn)

	SetMtu(mtu uint16)
	EffectiveMtu() uint16

	// Decodes one received frame and routes it to the matching completion
	// callback or notify handler.
	Dispatch(frame []byte)

	// Drops all pending callbacks and handler registrations.  No callback
	// fires after Close returns.
	Close()
}

// Builds protocol sessions bound to a transport.
type Codec interface {
	NewSession(x xport.Xport, mtu uint16) (Session, error)
}
