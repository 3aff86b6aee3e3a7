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

package serhost

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPacketZeroLength(t *testing.T) {
	_, err := newPacket(0)
	require.Error(t, err)
}

func TestPacketSingleSegment(t *testing.T) {
	pkt, err := newPacket(4)
	require.NoError(t, err)

	assert.True(t, pkt.addBytes([]byte{1, 2, 3, 4}))
	assert.Equal(t, []byte{1, 2, 3, 4}, pkt.bytes())
}

func TestPacketMultiSegment(t *testing.T) {
	pkt, err := newPacket(5)
	require.NoError(t, err)

	assert.False(t, pkt.addBytes([]byte{1, 2}))
	assert.False(t, pkt.addBytes([]byte{3, 4}))
	assert.True(t, pkt.addBytes([]byte{5}))
	assert.Equal(t, []byte{1, 2, 3, 4, 5}, pkt.bytes())
}

func TestPacketTrimEnd(t *testing.T) {
	pkt, err := newPacket(4)
	require.NoError(t, err)

	pkt.addBytes([]byte{1, 2, 3, 4})
	pkt.trimEnd(2)
	assert.Equal(t, []byte{1, 2}, pkt.bytes())

	// Trimming more than is buffered leaves the packet alone.
	pkt.trimEnd(3)
	assert.Equal(t, []byte{1, 2}, pkt.bytes())
}
