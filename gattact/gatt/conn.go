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

	log "github.com/sirupsen/logrus"

	"github.com/gattkit/gattman/gattact/att"
	"github.com/gattkit/gattman/gattact/attdefs"
	"github.com/gattkit/gattman/gattact/gattutil"
	"github.com/gattkit/gattman/gattact/loop"
	"github.com/gattkit/gattman/gattact/xport"
)

// Default bound on every blocking wait for a single packet or for channel
// readiness.  Discovery operations wait DISC_TMO_MULT times as long.
const MAX_WAIT_FOR_PACKET = 15 * time.Second
const DISC_TMO_MULT = 5

// Connection parameter update applied once after a fresh connect
// (supervision timeout > 0.42 s).
var connTuneParams = xport.ConnParams{
	MinInterval: 24,
	MaxInterval: 40,
	Latency:     0,
	Supervision: 700,
}

// Receives unsolicited server-initiated PDUs.  Both hooks run on the
// event loop goroutine and must return quickly.
type NotificationHandler interface {
	OnNotification(handle uint16, data []byte)
	OnIndication(handle uint16, data []byte)
}

// Default handler; just logs the event.
type LogNotificationHandler struct{}

func (LogNotificationHandler) OnNotification(handle uint16, data []byte) {
	log.Infof("on notification, handle: 0x%04x -> % x", handle, data)
}

func (LogNotificationHandler) OnIndication(handle uint16, data []byte) {
	log.Infof("on indication, handle: 0x%04x -> % x", handle, data)
}

// Opens the byte channel for one connection attempt.  Transports are
// single-use; a reconnect gets a fresh one.
type XportBuilder func(cfg ConnCfg) (xport.Xport, error)

type ConnCfg struct {
	Peer attdefs.Peer

	// Connect descriptor; the transport builder forwards it to whatever
	// brings the link up (see tcphost's open-channel request).
	ChannelType attdefs.ChannelType
	SecLevel    attdefs.SecLevel

	// 0 means the fixed ATT channel.
	Psm int

	// Requested channel MTU; 0 lets the link layer pick.
	Mtu uint16

	// Bound for single-packet waits; discovery waits 5x as long.
	MaxWaitForPacket time.Duration

	// nil gets LogNotificationHandler.
	NotifyHandler NotificationHandler
}

func NewConnCfg(peer attdefs.Peer) ConnCfg {
	return ConnCfg{
		Peer:             peer,
		ChannelType:      attdefs.CHANNEL_TYPE_PUBLIC,
		SecLevel:         attdefs.SEC_LEVEL_LOW,
		MaxWaitForPacket: MAX_WAIT_FOR_PACKET,
		NotifyHandler:    LogNotificationHandler{},
	}
}

// A client connection to one remote device's attribute database.
//
// Connect/Disconnect and every request operation are called from user
// goroutines; completion and unsolicited-PDU dispatch run on the event
// loop service.  The transport and session fields have exactly two
// writers -- the loop (connect finalization, hang-up) and Disconnect --
// serialized by mtx.
type Conn struct {
	cfg   ConnCfg
	id    uint32
	codec att.Codec
	xb    XportBuilder
	svc   *loop.Service

	// Resolved (nil or error) when a connect attempt completes.
	ready readySignal

	// Protects everything below.
	mtx    sync.Mutex
	state  attdefs.ConnState
	x      xport.Xport
	ses    att.Session
	attMtu uint16

	// Link-layer connection handle, when the transport reports one.
	connHandle uint16

	// Cleared on each connect; set once the post-connect parameter update
	// has run.
	tuned bool
}

// svc may be nil, in which case the process-wide default loop service is
// used.
func NewConn(cfg ConnCfg, codec att.Codec, xb XportBuilder,
	svc *loop.Service) *Conn {

	if cfg.NotifyHandler == nil {
		cfg.NotifyHandler = LogNotificationHandler{}
	}
	if cfg.MaxWaitForPacket == 0 {
		cfg.MaxWaitForPacket = MAX_WAIT_FOR_PACKET
	}
	if svc == nil {
		svc = loop.Default()
	}

	return &Conn{
		cfg:    cfg,
		id:     gattutil.NextId(),
		codec:  codec,
		xb:     xb,
		svc:    svc,
		state:  attdefs.CONN_STATE_DISCONNECTED,
		attMtu: attdefs.ATT_MTU_DFLT,
	}
}

func (c *Conn) State() attdefs.ConnState {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	return c.state
}

func (c *Conn) IsConnected() bool {
	return c.State() == attdefs.CONN_STATE_CONNECTED
}

func (c *Conn) AttMtu() uint16 {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	return c.attMtu
}

// Initiates a connection to the peer.  Fails immediately unless the
// connection is currently disconnected.  The channel opens
// asynchronously; if wait is true, this blocks via CheckChannel until
// the channel and protocol session are ready or the deadline elapses.
func (c *Conn) Connect(wait bool) error {
	c.mtx.Lock()
	if c.state != attdefs.CONN_STATE_DISCONNECTED {
		c.mtx.Unlock()
		return gattutil.FmtInvalidStateError(
			"Already connecting or connected; state=%s",
			attdefs.ConnStateToString(c.state))
	}
	c.state = attdefs.CONN_STATE_CONNECTING
	c.tuned = false
	c.ready.arm()
	c.mtx.Unlock()

	x, err := c.xb(c.cfg)
	if err != nil {
		c.mtx.Lock()
		c.state = attdefs.CONN_STATE_DISCONNECTED
		c.ready.resolve(gattutil.NewXportError(err.Error()))
		c.mtx.Unlock()
		return gattutil.NewXportError(err.Error())
	}

	c.mtx.Lock()
	c.x = x
	c.mtx.Unlock()

	log.Debugf("Connecting to %s; id=%d", c.cfg.Peer.String(), c.id)

	// The open itself must not block the loop; completion is handed back
	// to it.
	go func() {
		openErr := x.Start()
		c.svc.Run(func() error {
			c.finalizeConnect(x, openErr)
			return nil
		})
	}()

	if wait {
		return c.CheckChannel()
	}

	return nil
}

// Runs on the event loop goroutine when the transport resolves the open
// attempt.
func (c *Conn) finalizeConnect(x xport.Xport, openErr error) {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	if c.state != attdefs.CONN_STATE_CONNECTING || c.x != x {
		// Disconnected while the open was in flight.
		if openErr == nil {
			x.Stop()
		}
		return
	}

	if openErr != nil {
		log.Debugf("Connect failed; peer=%s: %s",
			c.cfg.Peer.String(), openErr.Error())

		c.state = attdefs.CONN_STATE_ERROR_CONNECTING
		c.x = nil
		c.ready.resolve(gattutil.NewXportError(openErr.Error()))
		return
	}

	mtu := uint16(attdefs.ATT_MTU_DFLT)
	if cip, ok := x.(xport.ChanInfoProvider); ok {
		if ci, err := cip.ChanInfo(); err != nil {
			// Can't detect MTU; use the default.
			mtu = attdefs.ATT_MTU_DFLT
		} else {
			mtu = ci.Mtu
			if ci.Cid == attdefs.ATT_CID {
				mtu = attdefs.ATT_MTU_DFLT
			}
			c.connHandle = ci.ConnHandle
		}
	}

	ses, err := c.codec.NewSession(x, mtu)
	if err != nil {
		c.state = attdefs.CONN_STATE_ERROR_CONNECTING
		c.x = nil
		x.Stop()
		c.ready.resolve(gattutil.NewXportError(err.Error()))
		return
	}

	ses.SetNotifyHandler(attdefs.ATT_OP_NOTIFY, c.rxNotify)
	ses.SetNotifyHandler(attdefs.ATT_OP_INDICATE, c.rxIndicate)

	c.ses = ses
	c.attMtu = mtu
	c.state = attdefs.CONN_STATE_CONNECTED

	c.svc.Attach(x, ses.Dispatch, c.onHangup)

	log.Debugf("Connected to %s; id=%d mtu=%d", c.cfg.Peer.String(), c.id,
		mtu)

	c.ready.resolve(nil)
}

// Runs on the event loop goroutine when the transport's RX stream
// closes.  The hang-up itself is not an error surfaced to anyone;
// pending requests fail via their own deadlines.
func (c *Conn) onHangup(err error) {
	if err != nil {
		log.Debugf("Connection hang-up; peer=%s: %s", c.cfg.Peer.String(),
			err.Error())
	}

	c.Disconnect()
}

// Tears the connection down.  No-op when already disconnected; safe to
// call from user code and from the hang-up path.
func (c *Conn) Disconnect() error {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	if c.state == attdefs.CONN_STATE_DISCONNECTED {
		return nil
	}

	if c.ses != nil {
		c.ses.Close()
		c.ses = nil
	}

	if c.x != nil {
		c.x.Stop()
		c.x = nil
	}

	c.state = attdefs.CONN_STATE_DISCONNECTED

	// Anyone still waiting on readiness loses.
	if c.ready.armed() {
		c.ready.resolve(gattutil.NewXportError("disconnected"))
	}

	return nil
}

// Blocks until the channel and protocol session from the most recent
// connect are ready, bounded by the configured deadline.  On first
// readiness after a fresh connect, applies the one-time link-layer
// connection parameter update; its failure is a hard error.
func (c *Conn) CheckChannel() error {
	if c.State() == attdefs.CONN_STATE_DISCONNECTED {
		return gattutil.NewNotConnectedError("Not connected")
	}

	outcome, ok := c.ready.wait(c.cfg.MaxWaitForPacket)
	if !ok {
		return gattutil.NewChannelNotReadyError(
			"Channel or attrib session not ready")
	}
	if outcome != nil {
		return outcome
	}

	c.mtx.Lock()
	x := c.x
	connHandle := c.connHandle
	needTune := false
	if c.state == attdefs.CONN_STATE_CONNECTED && !c.tuned {
		c.tuned = true
		needTune = true
	}
	c.mtx.Unlock()

	if needTune {
		if u, ok := x.(xport.ConnParamUpdater); ok {
			if err := u.UpdateConnParams(connHandle,
				connTuneParams); err != nil {

				return gattutil.FmtXportError(
					"Could not update connection: %s", err.Error())
			}
		}
	}

	return nil
}

func (c *Conn) session() (att.Session, error) {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	if c.ses == nil {
		return nil, gattutil.NewNotConnectedError("Not connected")
	}

	return c.ses, nil
}

func (c *Conn) checkConnected() (att.Session, error) {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	if c.state != attdefs.CONN_STATE_CONNECTED || c.ses == nil {
		return nil, gattutil.NewNotConnectedError("Not connected")
	}

	return c.ses, nil
}

// Issues an MTU exchange and, on success, adopts the negotiated value
// both locally and in the protocol session.  Returns the negotiated MTU.
func (c *Conn) ExchangeMtu(mtu uint16) (uint16, error) {
	ses, err := c.session()
	if err != nil {
		return 0, err
	}

	rsp := newPendingRsp()
	id := ses.ExchangeMtu(mtu, func(status uint8, negotiated uint16) {
		rsp.mtu = negotiated
		rsp.notify(status)
	})
	if id == att.REQ_ID_NONE {
		return 0, gattutil.NewRequestFailedError("exchange_mtu request failed")
	}

	if !rsp.wait(c.cfg.MaxWaitForPacket) {
		ses.Cancel(id)
		return 0, gattutil.NewRspTimeoutError("exchange_mtu timed out")
	}

	if err := rsp.statusErr(); err != nil {
		return 0, err
	}

	c.mtx.Lock()
	c.attMtu = rsp.mtu
	c.mtx.Unlock()
	ses.SetMtu(rsp.mtu)

	log.Debugf("ATT MTU updated; peer=%s mtu=%d", c.cfg.Peer.String(),
		rsp.mtu)

	return rsp.mtu, nil
}

// Reads the value of the attribute addressed by handle.
func (c *Conn) ReadByHandle(handle uint16) ([]byte, error) {
	if err := c.CheckChannel(); err != nil {
		return nil, err
	}

	ses, err := c.session()
	if err != nil {
		return nil, err
	}

	rsp := newPendingRsp()
	id := ses.ReadByHandle(handle, func(status uint8, value []byte) {
		if status == 0 {
			rsp.addData(value)
		}
		rsp.notify(status)
	})
	if id == att.REQ_ID_NONE {
		return nil, gattutil.NewRequestFailedError("read_by_handle failed")
	}

	if !rsp.wait(c.cfg.MaxWaitForPacket) {
		ses.Cancel(id)
		return nil, gattutil.NewRspTimeoutError("read_by_handle timed out")
	}

	if err := rsp.statusErr(); err != nil {
		return nil, err
	}

	if len(rsp.data) == 0 {
		return nil, nil
	}
	return rsp.data[0], nil
}

// Reads every attribute of the given type within the full handle range.
// Each returned buffer is one attribute's value.
func (c *Conn) ReadByUuid(uuidStr string) ([][]byte, error) {
	uuid, err := attdefs.ParseUuid(uuidStr)
	if err != nil {
		return nil, gattutil.FmtInvalidArgError("Invalid UUID: %s", uuidStr)
	}

	if err := c.CheckChannel(); err != nil {
		return nil, err
	}

	ses, err := c.session()
	if err != nil {
		return nil, err
	}

	rsp := newPendingRsp()
	id := ses.ReadByUuid(attdefs.ATT_HANDLE_MIN, attdefs.ATT_HANDLE_MAX,
		uuid, func(status uint8, values [][]byte) {

			if status == 0 {
				for _, v := range values {
					rsp.addData(v)
				}
			}
			rsp.notify(status)
		})
	if id == att.REQ_ID_NONE {
		return nil, gattutil.NewRequestFailedError("read_by_uuid failed")
	}

	if !rsp.wait(c.cfg.MaxWaitForPacket) {
		ses.Cancel(id)
		return nil, gattutil.NewRspTimeoutError("read_by_uuid timed out")
	}

	if err := rsp.statusErr(); err != nil {
		return nil, err
	}

	return rsp.data, nil
}

// Writes the attribute addressed by handle and waits for the
// acknowledgement.
func (c *Conn) WriteByHandle(handle uint16, value []byte) error {
	if err := c.CheckChannel(); err != nil {
		return err
	}

	ses, err := c.session()
	if err != nil {
		return err
	}

	rsp := newPendingRsp()
	id := ses.WriteByHandle(handle, value, func(status uint8) {
		rsp.notify(status)
	})
	if id == att.REQ_ID_NONE {
		return gattutil.NewRequestFailedError("write_by_handle failed")
	}

	if !rsp.wait(c.cfg.MaxWaitForPacket) {
		ses.Cancel(id)
		return gattutil.NewRspTimeoutError("write_by_handle timed out")
	}

	return rsp.statusErr()
}

// Fire-and-forget write; no response is expected or waited for.
func (c *Conn) WriteCmdByHandle(handle uint16, value []byte) error {
	if err := c.CheckChannel(); err != nil {
		return err
	}

	ses, err := c.session()
	if err != nil {
		return err
	}

	return ses.WriteCmd(handle, value)
}

// Discovers all primary services.  An empty result is a success, not an
// error.
func (c *Conn) DiscoverPrimary() ([]attdefs.Service, error) {
	ses, err := c.checkConnected()
	if err != nil {
		return nil, err
	}

	rsp := newPendingRsp()
	id := ses.DiscoverPrimary(func(status uint8, svcs []attdefs.Service) {
		if status == 0 {
			rsp.svcs = svcs
		}
		rsp.notify(status)
	})
	if id == att.REQ_ID_NONE {
		return nil, gattutil.NewRequestFailedError("discover_primary failed")
	}

	if !rsp.wait(c.cfg.MaxWaitForPacket * DISC_TMO_MULT) {
		ses.Cancel(id)
		return nil, gattutil.NewRspTimeoutError("discover_primary timed out")
	}

	if err := rsp.statusErr(); err != nil {
		return nil, err
	}

	return rsp.svcs, nil
}

// Discovers characteristics within the given handle range.  An empty
// uuidStr means no filter; a malformed one fails before any I/O.
func (c *Conn) DiscoverChrs(startHandle uint16, endHandle uint16,
	uuidStr string) ([]attdefs.Characteristic, error) {

	var filter *attdefs.Uuid
	if uuidStr != "" {
		uuid, err := attdefs.ParseUuid(uuidStr)
		if err != nil {
			return nil, gattutil.FmtInvalidArgError("Invalid UUID: %s",
				uuidStr)
		}
		filter = &uuid
	}

	ses, err := c.checkConnected()
	if err != nil {
		return nil, err
	}

	rsp := newPendingRsp()
	id := ses.DiscoverChrs(startHandle, endHandle, filter,
		func(status uint8, chrs []attdefs.Characteristic) {

			if status == 0 {
				rsp.chrs = chrs
			}
			rsp.notify(status)
		})
	if id == att.REQ_ID_NONE {
		return nil, gattutil.NewRequestFailedError(
			"discover_characteristics failed")
	}

	if !rsp.wait(c.cfg.MaxWaitForPacket * DISC_TMO_MULT) {
		ses.Cancel(id)
		return nil, gattutil.NewRspTimeoutError(
			"discover_characteristics timed out")
	}

	if err := rsp.statusErr(); err != nil {
		return nil, err
	}

	return rsp.chrs, nil
}

// Runs on the event loop goroutine for each unsolicited notification.
func (c *Conn) rxNotify(handle uint16, data []byte) {
	c.cfg.NotifyHandler.OnNotification(handle, data)
}

// Runs on the event loop goroutine for each unsolicited indication.  The
// confirmation goes out after the hook returns; a confirmation send
// failure is tolerated -- the remote retransmits.
func (c *Conn) rxIndicate(handle uint16, data []byte) {
	c.cfg.NotifyHandler.OnIndication(handle, data)

	ses, err := c.session()
	if err != nil {
		return
	}

	if err := ses.Confirm(); err != nil {
		log.Warnf("Failed to confirm indication; handle=0x%04x: %s",
			handle, err.Error())
	}
}
