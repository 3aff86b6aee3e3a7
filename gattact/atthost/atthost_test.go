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

package atthost

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gattkit/gattman/gattact/att"
	"github.com/gattkit/gattman/gattact/attdefs"
)

type captureXport struct {
	mtx    sync.Mutex
	frames [][]byte
	failTx bool

	rxCh  chan []byte
	hupCh chan error
}

func newCaptureXport() *captureXport {
	return &captureXport{
		rxCh:  make(chan []byte, 16),
		hupCh: make(chan error, 1),
	}
}

func (cx *captureXport) Start() error { return nil }

func (cx *captureXport) Tx(data []byte) error {
	cx.mtx.Lock()
	defer cx.mtx.Unlock()

	if cx.failTx {
		return fmt.Errorf("tx failed")
	}

	cx.frames = append(cx.frames, data)
	return nil
}

func (cx *captureXport) RxChan() <-chan []byte { return cx.rxCh }
func (cx *captureXport) HupChan() <-chan error { return cx.hupCh }
func (cx *captureXport) Stop() error           { return nil }

func (cx *captureXport) lastFrame() []byte {
	cx.mtx.Lock()
	defer cx.mtx.Unlock()

	if len(cx.frames) == 0 {
		return nil
	}
	return cx.frames[len(cx.frames)-1]
}

func newTestSession(t *testing.T) (*Session, *captureXport) {
	cx := newCaptureXport()
	ses, err := NewCodec().NewSession(cx, 23)
	require.NoError(t, err)

	return ses.(*Session), cx
}

func TestSessionReadRoundTrip(t *testing.T) {
	ses, cx := newTestSession(t)

	var gotStatus uint8 = 0xff
	var gotVal []byte
	id := ses.ReadByHandle(0x0010, func(status uint8, value []byte) {
		gotStatus = status
		gotVal = value
	})
	require.NotEqual(t, att.REQ_ID_NONE, id)

	// The request frame carries the allocated seq and the handle.
	req := ReadReq{}
	require.NoError(t, json.Unmarshal(cx.lastFrame(), &req))
	assert.Equal(t, MSG_OP_REQ, req.Op)
	assert.Equal(t, MSG_TYPE_READ, req.Type)
	assert.Equal(t, Seq(id), req.Seq)
	assert.Equal(t, uint16(0x0010), req.Handle)

	// A response with the same seq completes the request.
	rsp, err := json.Marshal(&ReadRsp{
		Op:     MSG_OP_RSP,
		Type:   MSG_TYPE_READ,
		Seq:    req.Seq,
		Status: 0,
		Data:   []byte{0xaa, 0xbb},
	})
	require.NoError(t, err)
	ses.Dispatch(rsp)

	assert.Equal(t, uint8(0), gotStatus)
	assert.Equal(t, []byte{0xaa, 0xbb}, gotVal)

	// The response consumed the registration; a duplicate is ignored.
	gotVal = nil
	ses.Dispatch(rsp)
	assert.Nil(t, gotVal)
}

func TestSessionErrorStatus(t *testing.T) {
	ses, cx := newTestSession(t)

	var gotStatus uint8
	id := ses.WriteByHandle(0x0020, []byte{1}, func(status uint8) {
		gotStatus = status
	})
	require.NotEqual(t, att.REQ_ID_NONE, id)

	req := WriteReq{}
	require.NoError(t, json.Unmarshal(cx.lastFrame(), &req))
	assert.Equal(t, []byte{1}, req.Data)

	rsp, _ := json.Marshal(&WriteRsp{
		Op:     MSG_OP_RSP,
		Type:   MSG_TYPE_WRITE,
		Seq:    req.Seq,
		Status: attdefs.ATT_ECODE_WRITE_NOT_PERM,
	})
	ses.Dispatch(rsp)

	assert.Equal(t, uint8(attdefs.ATT_ECODE_WRITE_NOT_PERM), gotStatus)
}

func TestSessionCancel(t *testing.T) {
	ses, cx := newTestSession(t)

	fired := false
	id := ses.ReadByHandle(0x0010, func(status uint8, value []byte) {
		fired = true
	})
	require.NotEqual(t, att.REQ_ID_NONE, id)

	ses.Cancel(id)

	req := ReadReq{}
	require.NoError(t, json.Unmarshal(cx.lastFrame(), &req))

	rsp, _ := json.Marshal(&ReadRsp{
		Op:   MSG_OP_RSP,
		Type: MSG_TYPE_READ,
		Seq:  req.Seq,
	})
	ses.Dispatch(rsp)

	assert.False(t, fired)
}

func TestSessionTxFailure(t *testing.T) {
	ses, cx := newTestSession(t)
	cx.failTx = true

	id := ses.ReadByHandle(0x0010, func(uint8, []byte) {
		t.Error("callback fired for failed send")
	})
	assert.Equal(t, att.REQ_ID_NONE, id)

	require.Error(t, ses.WriteCmd(0x0010, []byte{1}))
	require.Error(t, ses.Confirm())
}

func TestSessionMtuExchange(t *testing.T) {
	ses, cx := newTestSession(t)

	assert.Equal(t, uint16(23), ses.EffectiveMtu())

	var gotMtu uint16
	id := ses.ExchangeMtu(517, func(status uint8, mtu uint16) {
		gotMtu = mtu
	})
	require.NotEqual(t, att.REQ_ID_NONE, id)

	req := ExchangeMtuReq{}
	require.NoError(t, json.Unmarshal(cx.lastFrame(), &req))
	assert.Equal(t, uint16(517), req.Mtu)

	rsp, _ := json.Marshal(&ExchangeMtuRsp{
		Op:   MSG_OP_RSP,
		Type: MSG_TYPE_EXCHANGE_MTU,
		Seq:  req.Seq,
		Mtu:  185,
	})
	ses.Dispatch(rsp)
	assert.Equal(t, uint16(185), gotMtu)

	ses.SetMtu(gotMtu)
	assert.Equal(t, uint16(185), ses.EffectiveMtu())
}

func TestSessionDiscovery(t *testing.T) {
	ses, cx := newTestSession(t)

	uuid, err := attdefs.ParseUuid("0x2a00")
	require.NoError(t, err)

	var gotChrs []attdefs.Characteristic
	id := ses.DiscoverChrs(0x0001, 0xffff, &uuid,
		func(status uint8, chrs []attdefs.Characteristic) {
			gotChrs = chrs
		})
	require.NotEqual(t, att.REQ_ID_NONE, id)

	req := DiscChrsReq{}
	require.NoError(t, json.Unmarshal(cx.lastFrame(), &req))
	require.NotNil(t, req.Uuid)
	assert.Equal(t, "0x2a00", req.Uuid.String())

	exp := []attdefs.Characteristic{
		{Uuid: uuid, DefHandle: 2, ValHandle: 3, Properties: 0x12},
	}
	rsp, _ := json.Marshal(&DiscChrsRsp{
		Op:   MSG_OP_RSP,
		Type: MSG_TYPE_DISC_CHRS,
		Seq:  req.Seq,
		Chrs: exp,
	})
	ses.Dispatch(rsp)
	assert.Equal(t, exp, gotChrs)
}

func TestSessionNotifyRouting(t *testing.T) {
	ses, _ := newTestSession(t)

	var notifies, indicates []uint16
	ses.SetNotifyHandler(attdefs.ATT_OP_NOTIFY,
		func(handle uint16, data []byte) {
			notifies = append(notifies, handle)
		})
	ses.SetNotifyHandler(attdefs.ATT_OP_INDICATE,
		func(handle uint16, data []byte) {
			indicates = append(indicates, handle)
		})

	evt, _ := json.Marshal(&NotifyEvt{
		Op:     MSG_OP_EVT,
		Type:   MSG_TYPE_NOTIFY_EVT,
		AttOp:  attdefs.ATT_OP_NOTIFY,
		Handle: 0x0021,
		Data:   []byte{1},
	})
	ses.Dispatch(evt)

	evt, _ = json.Marshal(&NotifyEvt{
		Op:     MSG_OP_EVT,
		Type:   MSG_TYPE_NOTIFY_EVT,
		AttOp:  attdefs.ATT_OP_INDICATE,
		Handle: 0x0030,
		Data:   []byte{2},
	})
	ses.Dispatch(evt)

	// Unhandled ATT op; dropped without complaint.
	evt, _ = json.Marshal(&NotifyEvt{
		Op:    MSG_OP_EVT,
		Type:  MSG_TYPE_NOTIFY_EVT,
		AttOp: 0x99,
	})
	ses.Dispatch(evt)

	assert.Equal(t, []uint16{0x0021}, notifies)
	assert.Equal(t, []uint16{0x0030}, indicates)
}

func TestSessionGarbageFrames(t *testing.T) {
	ses, _ := newTestSession(t)

	// None of these panic or complete anything.
	ses.Dispatch([]byte("not json"))
	ses.Dispatch([]byte(`{"op":9,"type":0,"seq":1}`))
	ses.Dispatch([]byte(`{"op":1,"type":0,"seq":12345}`))
}

func TestSessionClose(t *testing.T) {
	ses, cx := newTestSession(t)

	fired := false
	ses.ReadByHandle(0x0010, func(uint8, []byte) {
		fired = true
	})

	req := ReadReq{}
	require.NoError(t, json.Unmarshal(cx.lastFrame(), &req))

	ses.Close()

	rsp, _ := json.Marshal(&ReadRsp{
		Op:   MSG_OP_RSP,
		Type: MSG_TYPE_READ,
		Seq:  req.Seq,
	})
	ses.Dispatch(rsp)
	assert.False(t, fired)

	// New requests after close are refused.
	id := ses.ReadByHandle(0x0010, func(uint8, []byte) {})
	assert.Equal(t, att.REQ_ID_NONE, id)
}
