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
	"fmt"
)

// Reassembly buffer for one length-prefixed packet arriving in segments.
type packet struct {
	expLen uint16
	buf    []byte
}

func newPacket(expLen uint16) (*packet, error) {
	if expLen == 0 {
		return nil, fmt.Errorf("Invalid packet length: 0")
	}

	return &packet{
		expLen: expLen,
		buf:    make([]byte, 0, expLen),
	}, nil
}

// Appends the specified bytes; returns true once the packet is complete.
func (p *packet) addBytes(b []byte) bool {
	p.buf = append(p.buf, b...)
	return len(p.buf) >= int(p.expLen)
}

func (p *packet) bytes() []byte {
	return p.buf
}

func (p *packet) trimEnd(n int) {
	if len(p.buf) >= n {
		p.buf = p.buf[:len(p.buf)-n]
	}
}
