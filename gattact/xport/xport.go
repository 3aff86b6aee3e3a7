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

package xport

// Information about an established channel, as reported by the link
// layer.  Not every transport can produce this; see ChanInfoProvider.
type ChanInfo struct {
	// Receive MTU achieved during channel establishment.
	Mtu uint16

	// L2CAP channel id.  The fixed ATT CID indicates the default MTU.
	Cid uint16

	// Link-layer connection handle; input to connection parameter updates.
	ConnHandle uint16
}

// Link-layer connection parameters.  Units are the BLE spec's: intervals
// in 1.25 ms, supervision timeout in 10 ms, ce lengths in 0.625 ms.
type ConnParams struct {
	MinInterval uint16
	MaxInterval uint16
	Latency     uint16
	Supervision uint16
	MinCeLength uint16
	MaxCeLength uint16
}

// A byte-stream channel to the remote ATT endpoint.
//
// The RX channel carries one complete frame per receive and is closed when
// the channel hangs up; the cause is then readable from HupChan.  Xport
// implementations never decode frames; decoding is the codec's job and
// happens on the event loop goroutine.
type Xport interface {
	// Opens the channel.  Blocks until the channel is usable or the attempt
	// fails.
	Start() error

	// Sends one frame.  Safe for concurrent use.
	Tx(data []byte) error

	// Stream of received frames; closed on hang-up or Stop.
	RxChan() <-chan []byte

	// Delivers the hang-up cause after RxChan closes; nil after a local
	// Stop.
	HupChan() <-chan error

	// Closes the channel and releases resources.  Idempotent.
	Stop() error
}

// Implemented by transports that can report negotiated channel info.
type ChanInfoProvider interface {
	ChanInfo() (ChanInfo, error)
}

// Implemented by transports whose link layer accepts connection parameter
// updates.
type ConnParamUpdater interface {
	UpdateConnParams(connHandle uint16, params ConnParams) error
}
