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

package config

import (
	"fmt"
	"strings"

	"github.com/spf13/cast"

	"github.com/gattkit/gattman/gattact/attdefs"
	"github.com/gattkit/gattman/gattact/serhost"
	"github.com/gattkit/gattman/gattact/tcphost"
	"github.com/gattkit/gattman/gattman/gmutil"
)

func einvalSerialConnString(f string, args ...interface{}) error {
	suffix := fmt.Sprintf(f, args...)
	return gmutil.FmtGmError("Invalid serial connstring; %s", suffix)
}

func ParseSerialConnString(cs string) (*serhost.XportCfg, error) {
	sc := serhost.NewXportCfg()
	sc.ReadTimeout = gmutil.TxTimeout()

	parts := strings.Split(cs, ",")
	for _, p := range parts {
		kv := strings.SplitN(p, "=", 2)
		// Handle old-style conn string (single token indicating dev file).
		if len(kv) == 1 {
			kv = []string{"dev", kv[0]}
		}

		k := kv[0]
		v := kv[1]

		switch k {
		case "dev":
			sc.DevPath = v

		case "baud":
			var err error
			sc.Baud, err = cast.ToIntE(v)
			if err != nil {
				return sc, einvalSerialConnString("Invalid baud: %s", v)
			}

		default:
			return sc, einvalSerialConnString("Unrecognized key: %s", k)
		}
	}

	return sc, nil
}

func einvalTcpConnString(f string, args ...interface{}) error {
	suffix := fmt.Sprintf(f, args...)
	return gmutil.FmtGmError("Invalid tcp connstring; %s", suffix)
}

func ParseTcpConnString(cs string) (*tcphost.XportCfg, error) {
	tc := tcphost.NewXportCfg()
	tc.CtlTimeout = gmutil.TxTimeout()

	parts := strings.Split(cs, ",")
	for _, p := range parts {
		kv := strings.SplitN(p, "=", 2)
		// Handle old-style conn string (single token indicating address).
		if len(kv) == 1 {
			kv = []string{"addr", kv[0]}
		}

		k := kv[0]
		v := kv[1]

		switch k {
		case "addr":
			tc.Addr = v

		case "peer":
			if _, err := attdefs.ParseBleAddr(v); err != nil {
				return tc, einvalTcpConnString("Invalid peer address: %s", v)
			}
			tc.PeerAddr = v

		case "type":
			if _, err := attdefs.ChannelTypeFromString(v); err != nil {
				return tc, einvalTcpConnString("Invalid channel type: %s", v)
			}
			tc.ChanType = v

		case "sec":
			if _, err := attdefs.SecLevelFromString(v); err != nil {
				return tc, einvalTcpConnString("Invalid security level: %s", v)
			}
			tc.SecLevel = v

		case "psm":
			var err error
			tc.Psm, err = cast.ToIntE(v)
			if err != nil {
				return tc, einvalTcpConnString("Invalid psm: %s", v)
			}

		default:
			return tc, einvalTcpConnString("Unrecognized key: %s", k)
		}
	}

	if tc.Addr == "" {
		return tc, einvalTcpConnString("Missing addr")
	}

	return tc, nil
}
