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

package attdefs

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

const ATT_ATTR_MAX_LEN = 512

// Default ATT MTU for an LE link before an MTU exchange takes place.
const ATT_MTU_DFLT = 23

// Fixed L2CAP channel id carrying ATT on an LE link.  A channel reporting
// this CID never negotiated a larger MTU.
const ATT_CID = 4

const (
	ATT_HANDLE_MIN uint16 = 0x0001
	ATT_HANDLE_MAX uint16 = 0xffff
)

// Server-initiated ATT opcodes.
const (
	ATT_OP_NOTIFY   uint8 = 0x1b
	ATT_OP_INDICATE uint8 = 0x1d
	ATT_OP_CONFIRM  uint8 = 0x1e
)

type ConnState int

const (
	CONN_STATE_DISCONNECTED ConnState = iota
	CONN_STATE_CONNECTING
	CONN_STATE_CONNECTED
	CONN_STATE_ERROR_CONNECTING
)

var ConnStateStringMap = map[ConnState]string{
	CONN_STATE_DISCONNECTED:     "disconnected",
	CONN_STATE_CONNECTING:       "connecting",
	CONN_STATE_CONNECTED:        "connected",
	CONN_STATE_ERROR_CONNECTING: "error_connecting",
}

func ConnStateToString(state ConnState) string {
	s := ConnStateStringMap[state]
	if s == "" {
		return "???"
	}

	return s
}

type ChannelType int

const (
	CHANNEL_TYPE_PUBLIC ChannelType = iota
	CHANNEL_TYPE_RANDOM
)

var ChannelTypeStringMap = map[ChannelType]string{
	CHANNEL_TYPE_PUBLIC: "public",
	CHANNEL_TYPE_RANDOM: "random",
}

func ChannelTypeToString(chanType ChannelType) string {
	s := ChannelTypeStringMap[chanType]
	if s == "" {
		return "???"
	}

	return s
}

func ChannelTypeFromString(s string) (ChannelType, error) {
	for chanType, name := range ChannelTypeStringMap {
		if s == name {
			return chanType, nil
		}
	}

	return ChannelType(0), fmt.Errorf("Invalid ChannelType string: %s", s)
}

type SecLevel int

const (
	SEC_LEVEL_LOW SecLevel = iota
	SEC_LEVEL_MEDIUM
	SEC_LEVEL_HIGH
)

var SecLevelStringMap = map[SecLevel]string{
	SEC_LEVEL_LOW:    "low",
	SEC_LEVEL_MEDIUM: "medium",
	SEC_LEVEL_HIGH:   "high",
}

func SecLevelToString(secLevel SecLevel) string {
	s := SecLevelStringMap[secLevel]
	if s == "" {
		return "???"
	}

	return s
}

func SecLevelFromString(s string) (SecLevel, error) {
	for secLevel, name := range SecLevelStringMap {
		if s == name {
			return secLevel, nil
		}
	}

	return SecLevel(0), fmt.Errorf("Invalid SecLevel string: %s", s)
}

type BleAddr struct {
	Bytes [6]byte
}

func ParseBleAddr(s string) (BleAddr, error) {
	ba := BleAddr{}

	toks := strings.Split(strings.ToLower(s), ":")
	if len(toks) != 6 {
		return ba, fmt.Errorf("invalid BLE addr string: %s", s)
	}

	for i, t := range toks {
		u64, err := strconv.ParseUint(t, 16, 8)
		if err != nil {
			return ba, err
		}
		ba.Bytes[i] = byte(u64)
	}

	return ba, nil
}

func (ba *BleAddr) String() string {
	var buf bytes.Buffer
	buf.Grow(len(ba.Bytes) * 3)

	for i, b := range ba.Bytes {
		if i != 0 {
			buf.WriteString(":")
		}
		fmt.Fprintf(&buf, "%02x", b)
	}

	return buf.String()
}

func (ba *BleAddr) MarshalJSON() ([]byte, error) {
	return json.Marshal(ba.String())
}

func (ba *BleAddr) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	var err error
	*ba, err = ParseBleAddr(s)
	if err != nil {
		return err
	}

	return nil
}

type Uuid16 uint16

func (u16 *Uuid16) String() string {
	return fmt.Sprintf("0x%04x", *u16)
}

func ParseUuid16(s string) (Uuid16, error) {
	val, err := strconv.ParseUint(s, 0, 16)
	if err != nil {
		return Uuid16(0), fmt.Errorf("Invalid UUID: %s", s)
	}

	return Uuid16(val), nil
}

type Uuid128 [16]byte

func (u128 *Uuid128) String() string {
	var buf bytes.Buffer
	buf.Grow(len(u128)*2 + 4)

	for i, b := range u128 {
		switch i {
		case 4, 6, 8, 10:
			buf.WriteString("-")
		}

		fmt.Fprintf(&buf, "%02x", b)
	}

	return buf.String()
}

func ParseUuid128(s string) (Uuid128, error) {
	var u128 Uuid128

	if len(s) != 36 {
		return u128, fmt.Errorf("Invalid UUID: %s", s)
	}

	boff := 0
	for i := 0; i < 36; {
		switch i {
		case 8, 13, 18, 23:
			if s[i] != '-' {
				return u128, fmt.Errorf("Invalid UUID: %s", s)
			}
			i++

		default:
			u64, err := strconv.ParseUint(s[i:i+2], 16, 8)
			if err != nil {
				return u128, fmt.Errorf("Invalid UUID: %s", s)
			}
			u128[boff] = byte(u64)
			i += 2
			boff++
		}
	}

	return u128, nil
}

func (u128 *Uuid128) MarshalJSON() ([]byte, error) {
	return json.Marshal(u128.String())
}

func (u128 *Uuid128) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	var err error
	*u128, err = ParseUuid128(s)
	if err != nil {
		return err
	}

	return nil
}

type Uuid struct {
	// Set to 0 if the 128-bit UUID should be used.
	U16 Uuid16

	// Set to zero if the 16-bit UUID should be used.
	U128 Uuid128
}

func (u *Uuid) String() string {
	if u.U16 != 0 {
		return u.U16.String()
	} else {
		return u.U128.String()
	}
}

func ParseUuid(uuidStr string) (Uuid, error) {
	u := Uuid{}
	var err error

	// First, try to parse as a 16-bit UUID.
	u.U16, err = ParseUuid16(uuidStr)
	if err == nil {
		return u, nil
	}

	// Bare four-digit hex form ("2a00").
	if len(uuidStr) == 4 {
		if val, err16 := strconv.ParseUint(uuidStr, 16, 16); err16 == nil {
			u.U16 = Uuid16(val)
			return u, nil
		}
	}

	// Try to parse as a 128-bit UUID.
	u.U128, err = ParseUuid128(uuidStr)
	if err == nil {
		return u, nil
	}

	return u, err
}

func (u *Uuid) MarshalJSON() ([]byte, error) {
	if u.U16 != 0 {
		return json.Marshal(u.U16)
	} else {
		return json.Marshal(u.U128.String())
	}
}

func (u *Uuid) UnmarshalJSON(data []byte) error {
	var err error

	// If the value is a string, try to parse a UUID from it.
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*u, err = ParseUuid(s)
		return err
	}

	// Not a string; maybe it's a raw 16-bit number.
	if err = json.Unmarshal(data, &u.U16); err != nil {
		return err
	}

	return nil
}

func CompareUuids(a Uuid, b Uuid) int {
	if a.U16 != 0 || b.U16 != 0 {
		return int(a.U16) - int(b.U16)
	} else {
		return bytes.Compare(a.U128[:], b.U128[:])
	}
}

// A remote peer, identified by adapter ("hci0") and address.
type Peer struct {
	Adapter string
	Addr    BleAddr
}

func (p *Peer) String() string {
	return fmt.Sprintf("%s,%s", p.Adapter, p.Addr.String())
}

type ChrProperties uint8

const (
	CHR_PROP_BROADCAST ChrProperties = 0x01
	CHR_PROP_READ                    = 0x02
	CHR_PROP_WRITE_NO_RSP            = 0x04
	CHR_PROP_WRITE                   = 0x08
	CHR_PROP_NOTIFY                  = 0x10
	CHR_PROP_INDICATE                = 0x20
	CHR_PROP_AUTH_SIGN_WRITE         = 0x40
	CHR_PROP_EXTENDED                = 0x80
)

var chrPropNameMap = []struct {
	prop ChrProperties
	name string
}{
	{CHR_PROP_BROADCAST, "broadcast"},
	{CHR_PROP_READ, "read"},
	{CHR_PROP_WRITE_NO_RSP, "write_no_rsp"},
	{CHR_PROP_WRITE, "write"},
	{CHR_PROP_NOTIFY, "notify"},
	{CHR_PROP_INDICATE, "indicate"},
	{CHR_PROP_AUTH_SIGN_WRITE, "auth_sign_write"},
	{CHR_PROP_EXTENDED, "extended"},
}

func (p ChrProperties) String() string {
	var toks []string
	for _, e := range chrPropNameMap {
		if p&e.prop != 0 {
			toks = append(toks, e.name)
		}
	}

	return strings.Join(toks, "|")
}

// A primary service discovered on the remote attribute database.
type Service struct {
	Uuid        Uuid   `json:"uuid"`
	StartHandle uint16 `json:"start"`
	EndHandle   uint16 `json:"end"`
}

func (s *Service) String() string {
	return fmt.Sprintf("uuid=%s start=0x%04x end=0x%04x",
		s.Uuid.String(), s.StartHandle, s.EndHandle)
}

// A characteristic discovered within a service's handle range.
type Characteristic struct {
	Uuid       Uuid          `json:"uuid"`
	DefHandle  uint16        `json:"handle"`
	ValHandle  uint16        `json:"value_handle"`
	Properties ChrProperties `json:"properties"`
}

func (c *Characteristic) String() string {
	return fmt.Sprintf("uuid=%s handle=0x%04x value_handle=0x%04x props=%s",
		c.Uuid.String(), c.DefHandle, c.ValHandle, c.Properties.String())
}
