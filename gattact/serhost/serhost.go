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
	"bufio"
	"encoding/base64"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/joaojeronimo/go-crc16"
	log "github.com/sirupsen/logrus"
	"github.com/tarm/serial"
)

// Serial framing: each packet is CRC16-suffixed, length-prefixed, base64
// encoded, and split into newline-terminated segments of at most 124
// base64 bytes.  The first segment of a packet starts with the bytes
// {6, 9}; continuation segments start with {4, 20}.

var errTimeout error = errors.New("Timeout reading from serial connection")

type XportCfg struct {
	DevPath     string
	Baud        int
	ReadTimeout time.Duration
}

func NewXportCfg() *XportCfg {
	return &XportCfg{
		Baud:        115200,
		ReadTimeout: 10 * time.Second,
	}
}

// Byte-stream channel to an ATT host daemon attached over a serial line.
type SerialXport struct {
	cfg     *XportCfg
	port    *serial.Port
	scanner *bufio.Scanner

	rxCh  chan []byte
	hupCh chan error

	txMtx sync.Mutex

	mtx     sync.Mutex
	wg      sync.WaitGroup
	started bool
	closing bool

	pkt *packet
}

func NewSerialXport(cfg *XportCfg) *SerialXport {
	return &SerialXport{
		cfg:   cfg,
		rxCh:  make(chan []byte, 16),
		hupCh: make(chan error, 1),
	}
}

func (sx *SerialXport) Start() error {
	sx.mtx.Lock()
	defer sx.mtx.Unlock()

	if sx.started {
		return fmt.Errorf("Serial xport started twice")
	}

	c := &serial.Config{
		Name:        sx.cfg.DevPath,
		Baud:        sx.cfg.Baud,
		ReadTimeout: sx.cfg.ReadTimeout,
	}

	var err error
	sx.port, err = serial.OpenPort(c)
	if err != nil {
		return err
	}

	if err := sx.port.Flush(); err != nil {
		sx.port.Close()
		return err
	}

	sx.started = true

	sx.wg.Add(1)
	go func() {
		defer sx.wg.Done()

		// Reading is line oriented; use a bufio.Scanner for it.
		sx.scanner = bufio.NewScanner(sx.port)

		for {
			frame, err := sx.rx()

			sx.mtx.Lock()
			closing := sx.closing
			sx.mtx.Unlock()

			if closing {
				sx.hupCh <- nil
				close(sx.rxCh)
				return
			}

			if err == errTimeout {
				continue
			}
			if err != nil {
				sx.hupCh <- err
				close(sx.rxCh)
				return
			}
			if frame == nil {
				continue
			}

			sx.rxCh <- frame
		}
	}()

	return nil
}

func (sx *SerialXport) Stop() error {
	sx.mtx.Lock()

	if !sx.started || sx.closing {
		sx.mtx.Unlock()
		return nil
	}
	sx.closing = true

	err := sx.port.Close()
	sx.mtx.Unlock()

	sx.wg.Wait()
	return err
}

func (sx *SerialXport) RxChan() <-chan []byte {
	return sx.rxCh
}

func (sx *SerialXport) HupChan() <-chan error {
	return sx.hupCh
}

func (sx *SerialXport) txRaw(bytes []byte) error {
	log.Debugf("Tx serial\n%s", hex.Dump(bytes))

	_, err := sx.port.Write(bytes)
	return err
}

func (sx *SerialXport) Tx(bytes []byte) error {
	sx.txMtx.Lock()
	defer sx.txMtx.Unlock()

	log.Debugf("Base64 encoding frame:\n%s", hex.Dump(bytes))

	pktData := make([]byte, 2)

	crc := crc16.Crc16(bytes)
	binary.BigEndian.PutUint16(pktData, crc)
	bytes = append(bytes, pktData...)

	dLen := uint16(len(bytes))
	binary.BigEndian.PutUint16(pktData, dLen)
	pktData = append(pktData, bytes...)

	base64Data := make([]byte, base64.StdEncoding.EncodedLen(len(pktData)))
	base64.StdEncoding.Encode(base64Data, pktData)

	written := 0
	totlen := len(base64Data)

	for written < totlen {
		// The segment designator differs between the first segment of a
		// packet and continuations.
		if written == 0 {
			if err := sx.txRaw([]byte{6, 9}); err != nil {
				return err
			}
		} else {
			// Slow platforms with small receive buffers need time to
			// process each segment.
			time.Sleep(20 * time.Millisecond)
			if err := sx.txRaw([]byte{4, 20}); err != nil {
				return err
			}
		}

		// The full segment, designator and newline included, must fit in
		// 128 bytes; base64 quadruples in units of 4, so cap the payload
		// at 124.
		writeLen := totlen - written
		if writeLen > 124 {
			writeLen = 124
		}

		if err := sx.txRaw(base64Data[written : written+writeLen]); err != nil {
			return err
		}
		if err := sx.txRaw([]byte{'\n'}); err != nil {
			return err
		}

		written += writeLen
	}

	return nil
}

// Blocking receive of a single reassembled packet.  A nil frame with a
// nil error means an ignorable line was consumed.
func (sx *SerialXport) rx() ([]byte, error) {
	for sx.scanner.Scan() {
		line := []byte(sx.scanner.Text())

		for len(line) > 1 && line[0] == '\r' {
			line = line[1:]
		}
		log.Debugf("Rx serial:\n%s", hex.Dump(line))

		if len(line) < 2 || ((line[0] != 4 || line[1] != 20) &&
			(line[0] != 6 || line[1] != 9)) {
			continue
		}

		data, err := base64.StdEncoding.DecodeString(string(line[2:]))
		if err != nil {
			return nil, fmt.Errorf("Couldn't decode base64 string: %s\n"+
				"Packet hex dump:\n%s", line[2:], hex.Dump(line))
		}

		if line[0] == 6 && line[1] == 9 {
			if len(data) < 2 {
				continue
			}

			pktLen := binary.BigEndian.Uint16(data[0:2])
			sx.pkt, err = newPacket(pktLen)
			if err != nil {
				return nil, err
			}
			data = data[2:]
		}

		if sx.pkt == nil {
			continue
		}

		if !sx.pkt.addBytes(data) {
			return nil, nil
		}

		if crc16.Crc16(sx.pkt.bytes()) != 0 {
			sx.pkt = nil
			return nil, fmt.Errorf("CRC error")
		}

		sx.pkt.trimEnd(2)
		b := sx.pkt.bytes()
		sx.pkt = nil

		log.Debugf("Decoded input:\n%s", hex.Dump(b))
		return b, nil
	}

	err := sx.scanner.Err()
	if err == nil {
		// Scanner hit EOF; this only happens on read timeouts.  A new
		// scanner is needed to keep reading.
		err = errTimeout
		sx.scanner = bufio.NewScanner(sx.port)
	}
	return nil, err
}
