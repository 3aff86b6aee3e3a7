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
	"encoding/hex"
	"encoding/json"
	"sync"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/gattkit/gattman/gattact/att"
	"github.com/gattkit/gattman/gattact/attdefs"
	"github.com/gattkit/gattman/gattact/gattutil"
	"github.com/gattkit/gattman/gattact/xport"
)

// Codec speaking the JSON host-daemon protocol defined in proto.go.
type Codec struct{}

func NewCodec() *Codec {
	return &Codec{}
}

func (c *Codec) NewSession(x xport.Xport, mtu uint16) (att.Session, error) {
	if x == nil {
		return nil, gattutil.NewInvalidArgError("nil transport")
	}

	return &Session{
		x:         x,
		mtu:       mtu,
		nextSeq:   1,
		seqMap:    map[Seq]rspFn{},
		notifyMap: map[uint8]att.NotifyFn{},
	}, nil
}

// Invoked with the decoded response matching a sent request.
type rspFn func(msg Msg)

// One JSON host-protocol session.
//
// The seq map holds the completion callback for each in-flight request.
// Dispatch invokes completion callbacks with the mutex held; Cancel and
// Close acquire the same mutex, which is what makes them synchronous
// with respect to late completions.  Notify handlers are invoked with
// the mutex released so that they can issue confirmations through the
// session.
type Session struct {
	x   xport.Xport
	mtx sync.Mutex

	nextSeq   Seq
	seqMap    map[Seq]rspFn
	notifyMap map[uint8]att.NotifyFn
	mtu       uint16
	closed    bool
}

// Allocates a sequence number and registers the completion callback for
// it.
func (s *Session) insertRsp(fn rspFn) (Seq, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.closed {
		return SEQ_NONE, gattutil.NewXportError("session closed")
	}

	seq := s.nextSeq
	s.nextSeq++
	if s.nextSeq == SEQ_NONE {
		s.nextSeq++
	}

	s.seqMap[seq] = fn
	return seq, nil
}

func (s *Session) removeRsp(seq Seq) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	delete(s.seqMap, seq)
}

func (s *Session) txMsg(msg Msg) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return errors.WithStack(err)
	}

	log.Debugf("Tx host frame: %s", data)

	if err := s.x.Tx(data); err != nil {
		return gattutil.FmtXportError("Frame transmit failed: %s",
			err.Error())
	}

	return nil
}

// Registers a completion callback, then transmits the request built for
// the allocated sequence number.  On transmit failure the registration
// is withdrawn and REQ_ID_NONE returned.
func (s *Session) txReq(build func(seq Seq) Msg, fn rspFn) att.ReqId {
	seq, err := s.insertRsp(fn)
	if err != nil {
		log.Debugf("Dropping request; %s", err.Error())
		return att.REQ_ID_NONE
	}

	if err := s.txMsg(build(seq)); err != nil {
		log.Debugf("Dropping request; %s", err.Error())
		s.removeRsp(seq)
		return att.REQ_ID_NONE
	}

	return att.ReqId(seq)
}

func (s *Session) ReadByHandle(handle uint16, cb att.ReadCb) att.ReqId {
	return s.txReq(
		func(seq Seq) Msg {
			return &ReadReq{
				Op:     MSG_OP_REQ,
				Type:   MSG_TYPE_READ,
				Seq:    seq,
				Handle: handle,
			}
		},
		func(msg Msg) {
			rsp := msg.(*ReadRsp)
			cb(rsp.Status, rsp.Data)
		})
}

func (s *Session) ReadByUuid(startHandle uint16, endHandle uint16,
	uuid attdefs.Uuid, cb att.ReadByUuidCb) att.ReqId {

	return s.txReq(
		func(seq Seq) Msg {
			return &ReadUuidReq{
				Op:          MSG_OP_REQ,
				Type:        MSG_TYPE_READ_UUID,
				Seq:         seq,
				StartHandle: startHandle,
				EndHandle:   endHandle,
				Uuid:        uuid,
			}
		},
		func(msg Msg) {
			rsp := msg.(*ReadUuidRsp)
			cb(rsp.Status, rsp.Values)
		})
}

func (s *Session) WriteByHandle(handle uint16, value []byte,
	cb att.WriteCb) att.ReqId {

	return s.txReq(
		func(seq Seq) Msg {
			return &WriteReq{
				Op:     MSG_OP_REQ,
				Type:   MSG_TYPE_WRITE,
				Seq:    seq,
				Handle: handle,
				Data:   value,
			}
		},
		func(msg Msg) {
			rsp := msg.(*WriteRsp)
			cb(rsp.Status)
		})
}

func (s *Session) WriteCmd(handle uint16, value []byte) error {
	return s.txMsg(&WriteCmdReq{
		Op:     MSG_OP_REQ,
		Type:   MSG_TYPE_WRITE_CMD,
		Handle: handle,
		Data:   value,
	})
}

func (s *Session) ExchangeMtu(mtu uint16, cb att.MtuCb) att.ReqId {
	return s.txReq(
		func(seq Seq) Msg {
			return &ExchangeMtuReq{
				Op:   MSG_OP_REQ,
				Type: MSG_TYPE_EXCHANGE_MTU,
				Seq:  seq,
				Mtu:  mtu,
			}
		},
		func(msg Msg) {
			rsp := msg.(*ExchangeMtuRsp)
			cb(rsp.Status, rsp.Mtu)
		})
}

func (s *Session) DiscoverPrimary(cb att.DiscSvcsCb) att.ReqId {
	return s.txReq(
		func(seq Seq) Msg {
			return &DiscSvcsReq{
				Op:   MSG_OP_REQ,
				Type: MSG_TYPE_DISC_SVCS,
				Seq:  seq,
			}
		},
		func(msg Msg) {
			rsp := msg.(*DiscSvcsRsp)
			cb(rsp.Status, rsp.Svcs)
		})
}

func (s *Session) DiscoverChrs(startHandle uint16, endHandle uint16,
	uuid *attdefs.Uuid, cb att.DiscChrsCb) att.ReqId {

	return s.txReq(
		func(seq Seq) Msg {
			return &DiscChrsReq{
				Op:          MSG_OP_REQ,
				Type:        MSG_TYPE_DISC_CHRS,
				Seq:         seq,
				StartHandle: startHandle,
				EndHandle:   endHandle,
				Uuid:        uuid,
			}
		},
		func(msg Msg) {
			rsp := msg.(*DiscChrsRsp)
			cb(rsp.Status, rsp.Chrs)
		})
}

func (s *Session) Confirm() error {
	return s.txMsg(&ConfirmReq{
		Op:   MSG_OP_REQ,
		Type: MSG_TYPE_CONFIRM,
	})
}

// Withdraws the completion callback for the specified request.  Once
// Cancel returns, the callback is guaranteed not to fire; a dispatch
// racing with the cancellation either completes first or finds nothing.
func (s *Session) Cancel(id att.ReqId) {
	if id == att.REQ_ID_NONE {
		return
	}

	s.removeRsp(Seq(id))
}

func (s *Session) SetNotifyHandler(opcode uint8, fn att.NotifyFn) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	s.notifyMap[opcode] = fn
}

func (s *Session) SetMtu(mtu uint16) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	s.mtu = mtu
}

func (s *Session) EffectiveMtu() uint16 {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	return s.mtu
}

func (s *Session) Dispatch(frame []byte) {
	base, msg, err := decodeMsg(frame)
	if err != nil {
		log.Debugf("Discarding undecodable frame: %s\n%s", err.Error(),
			hex.Dump(frame))
		return
	}

	log.Debugf("Rx host frame: op=%s type=%s seq=%d",
		MsgOpToString(base.Op), MsgTypeToString(base.Type), base.Seq)

	switch base.Op {
	case MSG_OP_RSP:
		s.dispatchRsp(base.Seq, msg)

	case MSG_OP_EVT:
		s.dispatchEvt(msg)

	default:
		log.Debugf("Discarding frame with unexpected op: %s",
			MsgOpToString(base.Op))
	}
}

func (s *Session) dispatchRsp(seq Seq, msg Msg) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.closed {
		return
	}

	fn := s.seqMap[seq]
	if fn == nil {
		log.Debugf("Discarding response with unexpected seq: %d", seq)
		return
	}
	delete(s.seqMap, seq)

	fn(msg)
}

func (s *Session) dispatchEvt(msg Msg) {
	evt, ok := msg.(*NotifyEvt)
	if !ok {
		return
	}

	s.mtx.Lock()
	fn := s.notifyMap[evt.AttOp]
	closed := s.closed
	s.mtx.Unlock()

	if closed {
		return
	}
	if fn == nil {
		log.Debugf("Discarding event with unhandled ATT op: 0x%02x",
			evt.AttOp)
		return
	}

	fn(evt.Handle, evt.Data)
}

func (s *Session) Close() {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	s.closed = true
	s.seqMap = map[Seq]rspFn{}
	s.notifyMap = map[uint8]att.NotifyFn{}
}
