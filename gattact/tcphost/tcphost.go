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

package tcphost

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/gattkit/gattman/gattact/gattutil"
	"github.com/gattkit/gattman/gattact/xport"
)

// Wire format: 2-byte big-endian length, then a 1-byte frame type, then
// the payload.  Data frames carry host protocol JSON and surface on the
// RX channel; control frames implement the open-channel request, the
// channel info query, and connection parameter updates and are consumed
// internally.
const (
	FRAME_TYPE_DATA            = 0
	FRAME_TYPE_CHAN_INFO_REQ   = 1
	FRAME_TYPE_CHAN_INFO_RSP   = 2
	FRAME_TYPE_CONN_PARAMS_REQ = 3
	FRAME_TYPE_CONN_PARAMS_RSP = 4
	FRAME_TYPE_OPEN_CHAN_REQ   = 5
	FRAME_TYPE_OPEN_CHAN_RSP   = 6
)

const MAX_FRAME_SIZE = 2048

// Connect descriptor the daemon needs to bring up the ATT channel to a
// peer on our behalf.
type openChanReq struct {
	Addr     string `json:"addr"`
	ChanType string `json:"chan_type,omitempty"`
	SecLevel string `json:"sec_level,omitempty"`
	Psm      int    `json:"psm,omitempty"`
	Mtu      uint16 `json:"mtu,omitempty"`
}

type openChanRsp struct {
	Status int `json:"status"`
}

type chanInfoRsp struct {
	Mtu        uint16 `json:"mtu"`
	Cid        uint16 `json:"cid"`
	ConnHandle uint16 `json:"conn_handle"`
}

type connParamsReq struct {
	ConnHandle  uint16 `json:"conn_handle"`
	MinInterval uint16 `json:"min_interval"`
	MaxInterval uint16 `json:"max_interval"`
	Latency     uint16 `json:"latency"`
	Supervision uint16 `json:"supervision"`
	MinCeLength uint16 `json:"min_ce_length"`
	MaxCeLength uint16 `json:"max_ce_length"`
}

type connParamsRsp struct {
	Status int `json:"status"`
}

type XportCfg struct {
	Addr       string
	CtlTimeout time.Duration

	// Connect descriptor forwarded to the daemon on Start when PeerAddr
	// is set.  An empty PeerAddr means the daemon is already attached to
	// its peer.
	PeerAddr string
	ChanType string
	SecLevel string
	Psm      int
	Mtu      uint16
}

func NewXportCfg() *XportCfg {
	return &XportCfg{
		CtlTimeout: 10 * time.Second,
	}
}

// Byte-stream channel to an ATT host daemon reachable over TCP.
type TcpXport struct {
	cfg  *XportCfg
	conn net.Conn

	rxCh  chan []byte
	hupCh chan error
	ctlCh chan []byte

	txMtx sync.Mutex

	mtx     sync.Mutex
	wg      sync.WaitGroup
	started bool
	closing bool
}

func NewTcpXport(cfg *XportCfg) *TcpXport {
	return &TcpXport{
		cfg:   cfg,
		rxCh:  make(chan []byte, 16),
		hupCh: make(chan error, 1),
		ctlCh: make(chan []byte, 1),
	}
}

func (tx *TcpXport) Start() error {
	tx.mtx.Lock()

	if tx.started {
		tx.mtx.Unlock()
		return fmt.Errorf("TCP xport started twice")
	}

	var err error
	tx.conn, err = net.Dial("tcp", tx.cfg.Addr)
	if err != nil {
		tx.mtx.Unlock()
		return err
	}

	tx.started = true

	tx.wg.Add(1)
	go func() {
		defer tx.wg.Done()

		for {
			frameType, payload, err := tx.rxFrame()
			if err != nil {
				tx.mtx.Lock()
				closing := tx.closing
				tx.mtx.Unlock()

				if closing {
					tx.hupCh <- nil
				} else {
					tx.hupCh <- err
				}
				close(tx.rxCh)
				return
			}

			switch frameType {
			case FRAME_TYPE_DATA:
				tx.rxCh <- payload

			case FRAME_TYPE_CHAN_INFO_RSP, FRAME_TYPE_CONN_PARAMS_RSP,
				FRAME_TYPE_OPEN_CHAN_RSP:
				select {
				case tx.ctlCh <- payload:
				default:
					log.Debugf("Discarding unsolicited control frame: "+
						"type=%d", frameType)
				}

			default:
				log.Debugf("Discarding frame with unknown type: %d",
					frameType)
			}
		}
	}()

	tx.mtx.Unlock()

	if tx.cfg.PeerAddr != "" {
		if err := tx.openChannel(); err != nil {
			tx.Stop()
			return err
		}
	}

	return nil
}

// Asks the daemon to bring up the ATT channel to the configured peer.
func (tx *TcpXport) openChannel() error {
	payload, err := json.Marshal(&openChanReq{
		Addr:     tx.cfg.PeerAddr,
		ChanType: tx.cfg.ChanType,
		SecLevel: tx.cfg.SecLevel,
		Psm:      tx.cfg.Psm,
		Mtu:      tx.cfg.Mtu,
	})
	if err != nil {
		return err
	}

	rsp, err := tx.ctlExchange(FRAME_TYPE_OPEN_CHAN_REQ, payload)
	if err != nil {
		return err
	}

	oc := openChanRsp{}
	if err := json.Unmarshal(rsp, &oc); err != nil {
		return err
	}

	if oc.Status != 0 {
		return fmt.Errorf("Open channel to %s refused: %d",
			tx.cfg.PeerAddr, oc.Status)
	}

	log.Debugf("Opened channel to %s", tx.cfg.PeerAddr)
	return nil
}

func (tx *TcpXport) Stop() error {
	tx.mtx.Lock()

	if !tx.started || tx.closing {
		tx.mtx.Unlock()
		return nil
	}
	tx.closing = true

	err := tx.conn.Close()
	tx.mtx.Unlock()

	tx.wg.Wait()
	return err
}

func (tx *TcpXport) RxChan() <-chan []byte {
	return tx.rxCh
}

func (tx *TcpXport) HupChan() <-chan error {
	return tx.hupCh
}

func (tx *TcpXport) txFrame(frameType byte, payload []byte) error {
	if len(payload)+1 > MAX_FRAME_SIZE {
		return fmt.Errorf("Frame too large: %d", len(payload)+1)
	}

	buf := make([]byte, 3+len(payload))
	binary.BigEndian.PutUint16(buf[0:2], uint16(len(payload)+1))
	buf[2] = frameType
	copy(buf[3:], payload)

	log.Debugf("Tx tcp\n%s", hex.Dump(buf))

	tx.txMtx.Lock()
	defer tx.txMtx.Unlock()

	_, err := tx.conn.Write(buf)
	return err
}

func (tx *TcpXport) Tx(data []byte) error {
	return tx.txFrame(FRAME_TYPE_DATA, data)
}

func (tx *TcpXport) rxFrame() (byte, []byte, error) {
	hdr := make([]byte, 2)
	if _, err := io.ReadFull(tx.conn, hdr); err != nil {
		return 0, nil, err
	}

	frameLen := binary.BigEndian.Uint16(hdr)
	if frameLen == 0 || frameLen > MAX_FRAME_SIZE {
		return 0, nil, fmt.Errorf("Invalid frame length: %d", frameLen)
	}

	buf := make([]byte, frameLen)
	if _, err := io.ReadFull(tx.conn, buf); err != nil {
		return 0, nil, err
	}

	log.Debugf("Rx tcp\n%s", hex.Dump(buf))

	return buf[0], buf[1:], nil
}

// Issues one control request and waits for its response.  Control
// exchanges are serialized by the callers (channel establishment runs on
// a single goroutine), so matching request to response by arrival order
// is sufficient.
func (tx *TcpXport) ctlExchange(reqType byte, payload []byte) ([]byte, error) {
	if err := tx.txFrame(reqType, payload); err != nil {
		return nil, err
	}

	timer := time.NewTimer(tx.cfg.CtlTimeout)
	defer gattutil.StopAndDrainTimer(timer)

	select {
	case rsp, ok := <-tx.ctlCh:
		if !ok {
			return nil, gattutil.NewXportError("Control channel closed")
		}
		return rsp, nil

	case <-timer.C:
		return nil, gattutil.NewXportError("Control request timed out")
	}
}

func (tx *TcpXport) ChanInfo() (xport.ChanInfo, error) {
	rsp, err := tx.ctlExchange(FRAME_TYPE_CHAN_INFO_REQ, nil)
	if err != nil {
		return xport.ChanInfo{}, err
	}

	ci := chanInfoRsp{}
	if err := json.Unmarshal(rsp, &ci); err != nil {
		return xport.ChanInfo{}, err
	}

	return xport.ChanInfo{
		Mtu:        ci.Mtu,
		Cid:        ci.Cid,
		ConnHandle: ci.ConnHandle,
	}, nil
}

func (tx *TcpXport) UpdateConnParams(connHandle uint16,
	params xport.ConnParams) error {

	req := connParamsReq{
		ConnHandle:  connHandle,
		MinInterval: params.MinInterval,
		MaxInterval: params.MaxInterval,
		Latency:     params.Latency,
		Supervision: params.Supervision,
		MinCeLength: params.MinCeLength,
		MaxCeLength: params.MaxCeLength,
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return err
	}

	rsp, err := tx.ctlExchange(FRAME_TYPE_CONN_PARAMS_REQ, payload)
	if err != nil {
		return err
	}

	cp := connParamsRsp{}
	if err := json.Unmarshal(rsp, &cp); err != nil {
		return err
	}

	if cp.Status != 0 {
		return fmt.Errorf("Connection parameter update rejected: %d",
			cp.Status)
	}

	return nil
}
