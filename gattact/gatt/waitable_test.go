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

package gatt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gattkit/gattman/gattact/attdefs"
	"github.com/gattkit/gattman/gattact/gattutil"
)

func TestWaitableEventSignalBeforeWait(t *testing.T) {
	ev := NewWaitableEvent()
	ev.Signal(0)

	require.True(t, ev.Wait(time.Millisecond))
	assert.Equal(t, uint8(0), ev.Status())
}

func TestWaitableEventSignalWhileWaiting(t *testing.T) {
	ev := NewWaitableEvent()

	go func() {
		time.Sleep(20 * time.Millisecond)
		ev.Signal(5)
	}()

	require.True(t, ev.Wait(time.Second))
	assert.Equal(t, uint8(5), ev.Status())
}

func TestWaitableEventTimeout(t *testing.T) {
	ev := NewWaitableEvent()
	require.False(t, ev.Wait(20*time.Millisecond))
}

func TestWaitableEventFirstSignalWins(t *testing.T) {
	ev := NewWaitableEvent()
	ev.Signal(1)
	ev.Signal(2)

	require.True(t, ev.Wait(time.Millisecond))
	assert.Equal(t, uint8(1), ev.Status())
}

func TestWaitableEventReset(t *testing.T) {
	ev := NewWaitableEvent()
	ev.Signal(3)
	require.True(t, ev.Wait(time.Millisecond))

	ev.Reset()
	require.False(t, ev.Wait(10*time.Millisecond))

	ev.Signal(4)
	require.True(t, ev.Wait(time.Millisecond))
	assert.Equal(t, uint8(4), ev.Status())
}

func TestReadySignalResolveBeforeWait(t *testing.T) {
	var r readySignal
	r.arm()
	require.True(t, r.armed())

	r.resolve(nil)
	require.False(t, r.armed())

	outcome, ok := r.wait(time.Millisecond)
	require.True(t, ok)
	assert.NoError(t, outcome)
}

func TestReadySignalResolveWhileWaiting(t *testing.T) {
	var r readySignal
	r.arm()

	want := gattutil.NewXportError("no route")
	go func() {
		time.Sleep(20 * time.Millisecond)
		r.resolve(want)
	}()

	outcome, ok := r.wait(time.Second)
	require.True(t, ok)
	assert.Equal(t, want, outcome)
}

func TestReadySignalDeadline(t *testing.T) {
	var r readySignal
	r.arm()

	_, ok := r.wait(20 * time.Millisecond)
	require.False(t, ok)
}

func TestReadySignalResolveUnarmed(t *testing.T) {
	var r readySignal
	r.arm()
	r.resolve(nil)

	// A late resolution cannot overwrite the attempt's outcome.
	r.resolve(gattutil.NewXportError("disconnected"))

	outcome, ok := r.wait(time.Millisecond)
	require.True(t, ok)
	assert.NoError(t, outcome)
}

func TestReadySignalRearm(t *testing.T) {
	var r readySignal
	r.arm()
	r.resolve(gattutil.NewXportError("refused"))

	outcome, ok := r.wait(time.Millisecond)
	require.True(t, ok)
	require.Error(t, outcome)

	// A fresh attempt starts clean.
	r.arm()
	_, ok = r.wait(10 * time.Millisecond)
	require.False(t, ok)

	r.resolve(nil)
	outcome, ok = r.wait(time.Millisecond)
	require.True(t, ok)
	assert.NoError(t, outcome)
}

func TestPendingRspSuccess(t *testing.T) {
	rsp := newPendingRsp()

	go func() {
		rsp.addData([]byte{1})
		rsp.addData([]byte{2})
		rsp.notify(0)
	}()

	require.True(t, rsp.wait(time.Second))
	require.NoError(t, rsp.statusErr())
	assert.Equal(t, [][]byte{{1}, {2}}, rsp.data)
}

func TestPendingRspAttError(t *testing.T) {
	rsp := newPendingRsp()
	rsp.notify(attdefs.ATT_ECODE_AUTHORIZATION)

	require.True(t, rsp.wait(time.Millisecond))

	err := rsp.statusErr()
	require.Error(t, err)
	require.True(t, gattutil.IsAtt(err))
	assert.Equal(t, uint8(attdefs.ATT_ECODE_AUTHORIZATION),
		gattutil.ToAtt(err).Status)
}
