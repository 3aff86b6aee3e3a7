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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSerialConnString(t *testing.T) {
	sc, err := ParseSerialConnString("dev=/dev/ttyUSB0,baud=1000000")
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyUSB0", sc.DevPath)
	assert.Equal(t, 1000000, sc.Baud)
}

func TestParseSerialConnStringOldStyle(t *testing.T) {
	sc, err := ParseSerialConnString("/dev/ttyACM0")
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyACM0", sc.DevPath)
	assert.Equal(t, 115200, sc.Baud)
}

func TestParseSerialConnStringInvalid(t *testing.T) {
	_, err := ParseSerialConnString("dev=/dev/ttyUSB0,baud=fast")
	require.Error(t, err)

	_, err = ParseSerialConnString("dev=/dev/ttyUSB0,flow=rtscts")
	require.Error(t, err)
}

func TestParseTcpConnString(t *testing.T) {
	tc, err := ParseTcpConnString("addr=127.0.0.1:19021")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:19021", tc.Addr)
}

func TestParseTcpConnStringOldStyle(t *testing.T) {
	tc, err := ParseTcpConnString("localhost:19021")
	require.NoError(t, err)
	assert.Equal(t, "localhost:19021", tc.Addr)
}

func TestParseTcpConnStringDescriptor(t *testing.T) {
	tc, err := ParseTcpConnString(
		"addr=127.0.0.1:19021,peer=aa:bb:cc:dd:ee:ff,type=random," +
			"sec=high,psm=31")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:19021", tc.Addr)
	assert.Equal(t, "aa:bb:cc:dd:ee:ff", tc.PeerAddr)
	assert.Equal(t, "random", tc.ChanType)
	assert.Equal(t, "high", tc.SecLevel)
	assert.Equal(t, 31, tc.Psm)
}

func TestParseTcpConnStringDescriptorInvalid(t *testing.T) {
	_, err := ParseTcpConnString("addr=h:1,peer=not-an-addr")
	require.Error(t, err)

	_, err = ParseTcpConnString("addr=h:1,type=static")
	require.Error(t, err)

	_, err = ParseTcpConnString("addr=h:1,sec=paranoid")
	require.Error(t, err)

	_, err = ParseTcpConnString("addr=h:1,psm=many")
	require.Error(t, err)
}

func TestParseTcpConnStringInvalid(t *testing.T) {
	_, err := ParseTcpConnString("port=19021")
	require.Error(t, err)

	_, err = ParseTcpConnString("")
	require.Error(t, err)
}
