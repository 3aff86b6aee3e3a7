package atthost

import (
	"encoding/json"
	"errors"

	"github.com/gattkit/gattman/gattact/attdefs"
)

// Host protocol spoken to the external ATT host daemon: one JSON object
// per frame.  Requests carry a sequence number; the daemon echoes it in
// the matching response.  Unsolicited events carry the server-initiated
// ATT opcode instead.

type MsgOp int
type MsgType int
type Seq uint32

// Seq 0 is never allocated; it doubles as the "no correlation handle"
// value.
const SEQ_NONE Seq = 0

const (
	MSG_OP_REQ MsgOp = 0
	MSG_OP_RSP       = 1
	MSG_OP_EVT       = 2
)

var MsgOpStringMap = map[MsgOp]string{
	MSG_OP_REQ: "request",
	MSG_OP_RSP: "response",
	MSG_OP_EVT: "event",
}

func MsgOpToString(op MsgOp) string {
	s := MsgOpStringMap[op]
	if s == "" {
		return "???"
	}

	return s
}

const (
	MSG_TYPE_READ MsgType = iota
	MSG_TYPE_READ_UUID
	MSG_TYPE_WRITE
	MSG_TYPE_WRITE_CMD
	MSG_TYPE_EXCHANGE_MTU
	MSG_TYPE_DISC_SVCS
	MSG_TYPE_DISC_CHRS
	MSG_TYPE_CONFIRM
	MSG_TYPE_NOTIFY_EVT
)

var MsgTypeStringMap = map[MsgType]string{
	MSG_TYPE_READ:         "read",
	MSG_TYPE_READ_UUID:    "read_uuid",
	MSG_TYPE_WRITE:        "write",
	MSG_TYPE_WRITE_CMD:    "write_cmd",
	MSG_TYPE_EXCHANGE_MTU: "exchange_mtu",
	MSG_TYPE_DISC_SVCS:    "disc_svcs",
	MSG_TYPE_DISC_CHRS:    "disc_chrs",
	MSG_TYPE_CONFIRM:      "confirm",
	MSG_TYPE_NOTIFY_EVT:   "notify_evt",
}

func MsgTypeToString(msgType MsgType) string {
	s := MsgTypeStringMap[msgType]
	if s == "" {
		return "???"
	}

	return s
}

func MsgTypeFromString(s string) (MsgType, error) {
	for msgType, name := range MsgTypeStringMap {
		if s == name {
			return msgType, nil
		}
	}

	return MsgType(0), errors.New("Invalid MsgType string: " + s)
}

type Msg interface{}

type MsgBase struct {
	// Header
	Op   MsgOp   `json:"op"`
	Type MsgType `json:"type"`
	Seq  Seq     `json:"seq"`
}

type ReadReq struct {
	// Header
	Op   MsgOp   `json:"op"`
	Type MsgType `json:"type"`
	Seq  Seq     `json:"seq"`

	// Mandatory
	Handle uint16 `json:"handle"`
}

type ReadRsp struct {
	// Header
	Op   MsgOp   `json:"op"`
	Type MsgType `json:"type"`
	Seq  Seq     `json:"seq"`

	// Mandatory
	Status uint8  `json:"status"`
	Data   []byte `json:"data"`
}

type ReadUuidReq struct {
	// Header
	Op   MsgOp   `json:"op"`
	Type MsgType `json:"type"`
	Seq  Seq     `json:"seq"`

	// Mandatory
	StartHandle uint16       `json:"start_handle"`
	EndHandle   uint16       `json:"end_handle"`
	Uuid        attdefs.Uuid `json:"uuid"`
}

type ReadUuidRsp struct {
	// Header
	Op   MsgOp   `json:"op"`
	Type MsgType `json:"type"`
	Seq  Seq     `json:"seq"`

	// Mandatory.  Each value is one attribute's data with the 2-byte
	// handle prefix already removed.
	Status uint8    `json:"status"`
	Values [][]byte `json:"values"`
}

type WriteReq struct {
	// Header
	Op   MsgOp   `json:"op"`
	Type MsgType `json:"type"`
	Seq  Seq     `json:"seq"`

	// Mandatory
	Handle uint16 `json:"handle"`
	Data   []byte `json:"data"`
}

type WriteRsp struct {
	// Header
	Op   MsgOp   `json:"op"`
	Type MsgType `json:"type"`
	Seq  Seq     `json:"seq"`

	// Mandatory
	Status uint8 `json:"status"`
}

// No response; seq is present but never echoed.
type WriteCmdReq struct {
	// Header
	Op   MsgOp   `json:"op"`
	Type MsgType `json:"type"`
	Seq  Seq     `json:"seq"`

	// Mandatory
	Handle uint16 `json:"handle"`
	Data   []byte `json:"data"`
}

type ExchangeMtuReq struct {
	// Header
	Op   MsgOp   `json:"op"`
	Type MsgType `json:"type"`
	Seq  Seq     `json:"seq"`

	// Mandatory
	Mtu uint16 `json:"mtu"`
}

type ExchangeMtuRsp struct {
	// Header
	Op   MsgOp   `json:"op"`
	Type MsgType `json:"type"`
	Seq  Seq     `json:"seq"`

	// Mandatory
	Status uint8  `json:"status"`
	Mtu    uint16 `json:"mtu"`
}

type DiscSvcsReq struct {
	// Header
	Op   MsgOp   `json:"op"`
	Type MsgType `json:"type"`
	Seq  Seq     `json:"seq"`
}

type DiscSvcsRsp struct {
	// Header
	Op   MsgOp   `json:"op"`
	Type MsgType `json:"type"`
	Seq  Seq     `json:"seq"`

	// Mandatory
	Status uint8             `json:"status"`
	Svcs   []attdefs.Service `json:"svcs"`
}

type DiscChrsReq struct {
	// Header
	Op   MsgOp   `json:"op"`
	Type MsgType `json:"type"`
	Seq  Seq     `json:"seq"`

	// Mandatory
	StartHandle uint16 `json:"start_handle"`
	EndHandle   uint16 `json:"end_handle"`

	// Optional; nil means no filter.
	Uuid *attdefs.Uuid `json:"uuid,omitempty"`
}

type DiscChrsRsp struct {
	// Header
	Op   MsgOp   `json:"op"`
	Type MsgType `json:"type"`
	Seq  Seq     `json:"seq"`

	// Mandatory
	Status uint8                    `json:"status"`
	Chrs   []attdefs.Characteristic `json:"chrs"`
}

// No response.
type ConfirmReq struct {
	// Header
	Op   MsgOp   `json:"op"`
	Type MsgType `json:"type"`
	Seq  Seq     `json:"seq"`
}

// Unsolicited server-initiated PDU (notification or indication,
// distinguished by AttOp).
type NotifyEvt struct {
	// Header
	Op   MsgOp   `json:"op"`
	Type MsgType `json:"type"`
	Seq  Seq     `json:"seq"`

	// Mandatory
	AttOp  uint8  `json:"att_op"`
	Handle uint16 `json:"handle"`
	Data   []byte `json:"data"`
}

type msgCtor func() Msg

func readRspCtor() Msg        { return &ReadRsp{} }
func readUuidRspCtor() Msg    { return &ReadUuidRsp{} }
func writeRspCtor() Msg       { return &WriteRsp{} }
func exchangeMtuRspCtor() Msg { return &ExchangeMtuRsp{} }
func discSvcsRspCtor() Msg    { return &DiscSvcsRsp{} }
func discChrsRspCtor() Msg    { return &DiscChrsRsp{} }
func notifyEvtCtor() Msg      { return &NotifyEvt{} }

type opTypePair struct {
	Op   MsgOp
	Type MsgType
}

var msgCtorMap = map[opTypePair]msgCtor{
	{MSG_OP_RSP, MSG_TYPE_READ}:         readRspCtor,
	{MSG_OP_RSP, MSG_TYPE_READ_UUID}:    readUuidRspCtor,
	{MSG_OP_RSP, MSG_TYPE_WRITE}:        writeRspCtor,
	{MSG_OP_RSP, MSG_TYPE_EXCHANGE_MTU}: exchangeMtuRspCtor,
	{MSG_OP_RSP, MSG_TYPE_DISC_SVCS}:    discSvcsRspCtor,
	{MSG_OP_RSP, MSG_TYPE_DISC_CHRS}:    discChrsRspCtor,

	{MSG_OP_EVT, MSG_TYPE_NOTIFY_EVT}: notifyEvtCtor,
}

func decodeBase(data []byte) (MsgBase, error) {
	base := MsgBase{}
	if err := json.Unmarshal(data, &base); err != nil {
		return base, err
	}

	return base, nil
}

func decodeMsg(data []byte) (MsgBase, Msg, error) {
	base, err := decodeBase(data)
	if err != nil {
		return base, nil, err
	}

	cb := msgCtorMap[opTypePair{base.Op, base.Type}]
	if cb == nil {
		return base, nil, errors.New(
			"Unrecognized op+type pair: " + MsgOpToString(base.Op) +
				", " + MsgTypeToString(base.Type))
	}

	msg := cb()
	if err := json.Unmarshal(data, msg); err != nil {
		return base, nil, err
	}

	return base, msg, nil
}
