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

package cli

import (
	"fmt"

	"github.com/gattkit/gattman/gattact/atthost"
	"github.com/gattkit/gattman/gattact/attdefs"
	"github.com/gattkit/gattman/gattact/gatt"
	"github.com/gattkit/gattman/gattact/serhost"
	"github.com/gattkit/gattman/gattact/tcphost"
	"github.com/gattkit/gattman/gattact/xport"
	"github.com/gattkit/gattman/gattman/config"
	"github.com/gattkit/gattman/gattman/gmutil"
)

var globalConn *gatt.Conn
var globalXport xport.Xport

// Resolves the connection profile, honoring the command line overrides.
func getConnProfile() (*config.ConnProfile, error) {
	var cp *config.ConnProfile

	if gmutil.ConnProfile != "" {
		var err error
		cp, err = config.GlobalConnProfileMgr().GetConnProfile(
			gmutil.ConnProfile)
		if err != nil {
			return nil, err
		}
	} else {
		cp = config.NewConnProfile()
	}

	// Command line overrides.
	if gmutil.ConnType != "" {
		t, err := config.ConnTypeFromString(gmutil.ConnType)
		if err != nil {
			return nil, err
		}
		cp.Type = t
	}
	if gmutil.ConnString != "" {
		cp.ConnString = gmutil.ConnString
	}
	if gmutil.ConnExtra != "" {
		if cp.ConnString != "" {
			cp.ConnString += ","
		}
		cp.ConnString += gmutil.ConnExtra
	}

	if cp.Type == config.CONN_TYPE_NONE {
		return nil, gmutil.NewGmError(
			"Must specify a connection profile (-c) or type (--conntype)")
	}

	return cp, nil
}

func buildXport(cp *config.ConnProfile, cfg gatt.ConnCfg) (xport.Xport,
	error) {

	switch cp.Type {
	case config.CONN_TYPE_SERIAL:
		// A serial bridge is attached to a single peer configured on the
		// daemon side; the connect descriptor does not apply.
		sc, err := config.ParseSerialConnString(cp.ConnString)
		if err != nil {
			return nil, err
		}
		return serhost.NewSerialXport(sc), nil

	case config.CONN_TYPE_TCP:
		tc, err := config.ParseTcpConnString(cp.ConnString)
		if err != nil {
			return nil, err
		}

		// The conn cfg is authoritative for the connect descriptor; the
		// conn string only seeded it.
		var noAddr attdefs.BleAddr
		if cfg.Peer.Addr != noAddr {
			tc.PeerAddr = cfg.Peer.Addr.String()
		}
		tc.ChanType = attdefs.ChannelTypeToString(cfg.ChannelType)
		tc.SecLevel = attdefs.SecLevelToString(cfg.SecLevel)
		tc.Psm = cfg.Psm
		tc.Mtu = cfg.Mtu

		return tcphost.NewTcpXport(tc), nil

	default:
		return nil, gmutil.FmtGmError("Unknown connection type: %s (%d)",
			config.ConnTypeToString(cp.Type), int(cp.Type))
	}
}

// Folds the connect descriptor from a tcp profile's conn string into the
// conn cfg: peer address, channel type, security level, PSM.
func applyTcpProfile(cfg *gatt.ConnCfg, cp *config.ConnProfile) error {
	if cp.Type != config.CONN_TYPE_TCP {
		return nil
	}

	tc, err := config.ParseTcpConnString(cp.ConnString)
	if err != nil {
		return err
	}

	if tc.PeerAddr != "" {
		addr, err := attdefs.ParseBleAddr(tc.PeerAddr)
		if err != nil {
			return err
		}
		cfg.Peer.Addr = addr
	}
	if tc.ChanType != "" {
		ct, err := attdefs.ChannelTypeFromString(tc.ChanType)
		if err != nil {
			return err
		}
		cfg.ChannelType = ct
	}
	if tc.SecLevel != "" {
		sl, err := attdefs.SecLevelFromString(tc.SecLevel)
		if err != nil {
			return err
		}
		cfg.SecLevel = sl
	}
	cfg.Psm = tc.Psm

	return nil
}

// Requested MTU: command line wins, then the settings file.
func requestedMtu() uint16 {
	if gmutil.Mtu != 0 {
		return uint16(gmutil.Mtu)
	}

	return config.GlobalSettings().Mtu
}

// Returns the global connection, establishing it on first use.  The
// channel is checked (and tuned) before the connection is handed out;
// if an MTU was requested, it is negotiated here too.
func GetConn() (*gatt.Conn, error) {
	return GetConnWithHandler(nil)
}

func GetConnWithHandler(nh gatt.NotificationHandler) (*gatt.Conn, error) {
	if globalConn != nil {
		return globalConn, nil
	}

	cp, err := getConnProfile()
	if err != nil {
		return nil, err
	}

	cfg := gatt.NewConnCfg(attdefs.Peer{
		Adapter: fmt.Sprintf("hci%d", gmutil.HciIdx),
	})
	cfg.MaxWaitForPacket = gmutil.TxTimeout()
	cfg.Mtu = requestedMtu()
	if nh != nil {
		cfg.NotifyHandler = nh
	}
	if err := applyTcpProfile(&cfg, cp); err != nil {
		return nil, err
	}

	xb := func(cfg gatt.ConnCfg) (xport.Xport, error) {
		x, err := buildXport(cp, cfg)
		if err != nil {
			return nil, err
		}

		globalXport = x
		return x, nil
	}

	conn := gatt.NewConn(cfg, atthost.NewCodec(), xb, nil)

	if err := conn.Connect(true); err != nil {
		conn.Disconnect()
		return nil, err
	}

	if cfg.Mtu != 0 {
		mtu, err := conn.ExchangeMtu(cfg.Mtu)
		if err != nil {
			conn.Disconnect()
			return nil, err
		}
		fmt.Printf("Negotiated MTU: %d\n", mtu)
	}

	globalConn = conn
	return globalConn, nil
}

func GetConnIfOpen() (*gatt.Conn, error) {
	if globalConn == nil {
		return nil, fmt.Errorf("conn not initialized")
	}

	return globalConn, nil
}

func GetXportIfOpen() (xport.Xport, error) {
	if globalXport == nil {
		return nil, fmt.Errorf("xport not initialized")
	}

	return globalXport, nil
}
