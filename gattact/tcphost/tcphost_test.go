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
	"encoding/json"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gattkit/gattman/gattact/xport"
)

// In-process daemon stand-in: accepts a single connection and hands it
// to the test body.
type testServer struct {
	ln     net.Listener
	connCh chan net.Conn
}

func newTestServer(t *testing.T) *testServer {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ts := &testServer{
		ln:     ln,
		connCh: make(chan net.Conn, 1),
	}

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		ts.connCh <- conn
	}()

	t.Cleanup(func() { ln.Close() })

	return ts
}

func (ts *testServer) addr() string {
	return ts.ln.Addr().String()
}

func (ts *testServer) accept(t *testing.T) net.Conn {
	select {
	case conn := <-ts.connCh:
		t.Cleanup(func() { conn.Close() })
		return conn

	case <-time.After(time.Second):
		t.Fatal("client never connected")
		return nil
	}
}

func readRawFrame(conn net.Conn) (byte, []byte, error) {
	hdr := make([]byte, 2)
	if _, err := io.ReadFull(conn, hdr); err != nil {
		return 0, nil, err
	}

	buf := make([]byte, binary.BigEndian.Uint16(hdr))
	if _, err := io.ReadFull(conn, buf); err != nil {
		return 0, nil, err
	}

	return buf[0], buf[1:], nil
}

func writeRawFrame(conn net.Conn, frameType byte, payload []byte) error {
	buf := make([]byte, 3+len(payload))
	binary.BigEndian.PutUint16(buf[0:2], uint16(len(payload)+1))
	buf[2] = frameType
	copy(buf[3:], payload)

	_, err := conn.Write(buf)
	return err
}

func readFrame(t *testing.T, conn net.Conn) (byte, []byte) {
	frameType, payload, err := readRawFrame(conn)
	require.NoError(t, err)
	return frameType, payload
}

func writeFrame(t *testing.T, conn net.Conn, frameType byte,
	payload []byte) {

	require.NoError(t, writeRawFrame(conn, frameType, payload))
}

func startTestXport(t *testing.T, ts *testServer) *TcpXport {
	cfg := NewXportCfg()
	cfg.Addr = ts.addr()
	cfg.CtlTimeout = time.Second

	tx := NewTcpXport(cfg)
	require.NoError(t, tx.Start())
	t.Cleanup(func() { tx.Stop() })

	return tx
}

func TestTcpDataRoundTrip(t *testing.T) {
	ts := newTestServer(t)
	tx := startTestXport(t, ts)
	conn := ts.accept(t)

	require.NoError(t, tx.Tx([]byte(`{"op":0}`)))

	frameType, payload := readFrame(t, conn)
	assert.Equal(t, byte(FRAME_TYPE_DATA), frameType)
	assert.Equal(t, []byte(`{"op":0}`), payload)

	writeFrame(t, conn, FRAME_TYPE_DATA, []byte(`{"op":1}`))

	select {
	case frame := <-tx.RxChan():
		assert.Equal(t, []byte(`{"op":1}`), frame)
	case <-time.After(time.Second):
		t.Fatal("frame never surfaced")
	}
}

func TestTcpChanInfo(t *testing.T) {
	ts := newTestServer(t)
	tx := startTestXport(t, ts)
	conn := ts.accept(t)

	go func() {
		frameType, _ := readFrame(t, conn)
		if frameType != FRAME_TYPE_CHAN_INFO_REQ {
			return
		}

		rsp, _ := json.Marshal(&chanInfoRsp{
			Mtu:        185,
			Cid:        0x0040,
			ConnHandle: 7,
		})
		writeFrame(t, conn, FRAME_TYPE_CHAN_INFO_RSP, rsp)
	}()

	ci, err := tx.ChanInfo()
	require.NoError(t, err)
	assert.Equal(t, uint16(185), ci.Mtu)
	assert.Equal(t, uint16(0x0040), ci.Cid)
	assert.Equal(t, uint16(7), ci.ConnHandle)
}

func TestTcpConnParams(t *testing.T) {
	ts := newTestServer(t)
	tx := startTestXport(t, ts)
	conn := ts.accept(t)

	reqCh := make(chan connParamsReq, 1)
	go func() {
		frameType, payload := readFrame(t, conn)
		if frameType != FRAME_TYPE_CONN_PARAMS_REQ {
			return
		}

		req := connParamsReq{}
		if err := json.Unmarshal(payload, &req); err != nil {
			return
		}
		reqCh <- req

		rsp, _ := json.Marshal(&connParamsRsp{Status: 0})
		writeFrame(t, conn, FRAME_TYPE_CONN_PARAMS_RSP, rsp)
	}()

	params := xport.ConnParams{
		MinInterval: 24,
		MaxInterval: 40,
		Latency:     0,
		Supervision: 700,
	}
	require.NoError(t, tx.UpdateConnParams(7, params))

	req := <-reqCh
	assert.Equal(t, uint16(7), req.ConnHandle)
	assert.Equal(t, uint16(24), req.MinInterval)
	assert.Equal(t, uint16(40), req.MaxInterval)
	assert.Equal(t, uint16(700), req.Supervision)
}

func TestTcpConnParamsRejected(t *testing.T) {
	ts := newTestServer(t)
	tx := startTestXport(t, ts)
	conn := ts.accept(t)

	go func() {
		readFrame(t, conn)
		rsp, _ := json.Marshal(&connParamsRsp{Status: 22})
		writeFrame(t, conn, FRAME_TYPE_CONN_PARAMS_RSP, rsp)
	}()

	err := tx.UpdateConnParams(7, xport.ConnParams{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "22")
}

func TestTcpOpenChannel(t *testing.T) {
	ts := newTestServer(t)

	cfg := NewXportCfg()
	cfg.Addr = ts.addr()
	cfg.CtlTimeout = time.Second
	cfg.PeerAddr = "aa:bb:cc:dd:ee:ff"
	cfg.ChanType = "random"
	cfg.SecLevel = "medium"
	cfg.Psm = 31
	cfg.Mtu = 185

	reqCh := make(chan openChanReq, 1)
	go func() {
		conn := <-ts.connCh

		frameType, payload, err := readRawFrame(conn)
		if err != nil || frameType != FRAME_TYPE_OPEN_CHAN_REQ {
			return
		}

		req := openChanReq{}
		if json.Unmarshal(payload, &req) != nil {
			return
		}
		reqCh <- req

		rsp, _ := json.Marshal(&openChanRsp{Status: 0})
		writeRawFrame(conn, FRAME_TYPE_OPEN_CHAN_RSP, rsp)
	}()

	tx := NewTcpXport(cfg)
	require.NoError(t, tx.Start())
	t.Cleanup(func() { tx.Stop() })

	// Start does not return until the daemon accepts the descriptor.
	req := <-reqCh
	assert.Equal(t, "aa:bb:cc:dd:ee:ff", req.Addr)
	assert.Equal(t, "random", req.ChanType)
	assert.Equal(t, "medium", req.SecLevel)
	assert.Equal(t, 31, req.Psm)
	assert.Equal(t, uint16(185), req.Mtu)
}

func TestTcpOpenChannelRefused(t *testing.T) {
	ts := newTestServer(t)

	cfg := NewXportCfg()
	cfg.Addr = ts.addr()
	cfg.CtlTimeout = time.Second
	cfg.PeerAddr = "aa:bb:cc:dd:ee:ff"

	go func() {
		conn := <-ts.connCh

		if _, _, err := readRawFrame(conn); err != nil {
			return
		}

		rsp, _ := json.Marshal(&openChanRsp{Status: 12})
		writeRawFrame(conn, FRAME_TYPE_OPEN_CHAN_RSP, rsp)
	}()

	tx := NewTcpXport(cfg)
	err := tx.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "12")

	// The failed open left the transport stopped.
	require.NoError(t, tx.Stop())
}

func TestTcpRemoteClose(t *testing.T) {
	ts := newTestServer(t)
	tx := startTestXport(t, ts)
	conn := ts.accept(t)

	conn.Close()

	select {
	case err := <-tx.HupChan():
		assert.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("hang-up never reported")
	}
}

func TestTcpLocalStop(t *testing.T) {
	ts := newTestServer(t)
	tx := startTestXport(t, ts)
	ts.accept(t)

	require.NoError(t, tx.Stop())

	// A local stop reports a nil hang-up reason.
	select {
	case err := <-tx.HupChan():
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("hang-up never reported")
	}

	// Stop is idempotent.
	require.NoError(t, tx.Stop())
}

func TestTcpStartFailure(t *testing.T) {
	cfg := NewXportCfg()
	cfg.Addr = "127.0.0.1:1"

	tx := NewTcpXport(cfg)
	require.Error(t, tx.Start())
}

func TestTcpOversizedTx(t *testing.T) {
	ts := newTestServer(t)
	tx := startTestXport(t, ts)
	ts.accept(t)

	require.Error(t, tx.Tx(make([]byte, MAX_FRAME_SIZE)))
}
