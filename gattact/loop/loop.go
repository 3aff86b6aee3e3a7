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

package loop

import (
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/gattkit/gattman/gattact/xport"
)

// A single action that runs on the service goroutine.
type action struct {
	fn func() error
	ch chan error
}

var InactiveError = fmt.Errorf("inactive event loop service")

// A background dispatcher servicing every attached transport.
//
// Exactly one goroutine runs all actions: received-frame dispatch,
// connect finalization, hang-up teardown.  Codec decode calls and
// network-driven state transitions therefore never race with each other.
// Actions must not block on application logic; a blocked action stalls
// every connection sharing the service.
//
// Attached transports get a pump goroutine each; pumps do no decoding,
// they only forward frames into the action queue.
type Service struct {
	actCh  chan action
	stopCh chan struct{}
	active bool
	name   string
	mtx    sync.Mutex
	wg     sync.WaitGroup
}

func NewService(name string) *Service {
	return &Service{
		name: name,
	}
}

var dfltService = NewService("default")
var dfltOnce sync.Once

// Returns the process-wide service, starting it on first use.  Tests and
// embedders that want isolation should construct their own Service
// instead.
func Default() *Service {
	dfltOnce.Do(func() {
		if err := dfltService.Start(10); err != nil {
			panic(err)
		}
	})

	return dfltService
}

// Pushes the specified function onto the service's queue.  When the
// action completes, the result is sent over the returned channel.
func (s *Service) Enqueue(fn func() error) chan error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	act := action{
		fn: fn,
		ch: make(chan error, 1),
	}

	if !s.active {
		act.ch <- InactiveError
	} else {
		s.actCh <- act
	}

	return act.ch
}

// Enqueues the specified function and waits for it to complete.
func (s *Service) Run(fn func() error) error {
	return <-s.Enqueue(fn)
}

// Starts the service goroutine.  A service must be started before
// transports can be attached or actions enqueued to it.
func (s *Service) Start(depth int) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.active {
		return fmt.Errorf("Event loop service started twice \"%s\"", s.name)
	}
	s.active = true

	actCh := make(chan action, depth)
	s.actCh = actCh

	stopCh := make(chan struct{})
	s.stopCh = stopCh

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		for {
			select {
			case act, ok := <-actCh:
				if ok {
					err := act.fn()
					act.ch <- err
					close(act.ch)
				}

			case <-stopCh:
				return
			}
		}
	}()

	return nil
}

// Stops the service.  Queued actions fail with the specified cause.  This
// function blocks until the service goroutine and all pumps return, so
// attached transports must be stopped first, and calling this from within
// an action results in deadlock.
func (s *Service) Stop(cause error) error {
	s.mtx.Lock()

	if !s.active {
		s.mtx.Unlock()
		return fmt.Errorf("Event loop service stopped twice \"%s\"", s.name)
	}

	close(s.stopCh)

	// Drain unprocessed actions from the action channel.
	close(s.actCh)
	for {
		next, ok := <-s.actCh
		if !ok {
			break
		}

		next.ch <- cause
		close(next.ch)
	}

	s.active = false
	s.mtx.Unlock()

	s.wg.Wait()
	return nil
}

func (s *Service) Active() bool {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	return s.active
}

// Attaches a transport to the service.  Frames read from the transport
// are dispatched on the service goroutine via the specified dispatch
// function; when the transport's RX stream closes, onHup runs on the
// service goroutine with the hang-up cause.  The pump exits on its own;
// there is no detach.
func (s *Service) Attach(x xport.Xport, dispatch func(frame []byte),
	onHup func(err error)) {

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		for frame := range x.RxChan() {
			f := frame
			if err := s.Run(func() error {
				dispatch(f)
				return nil
			}); err != nil {
				log.Debugf("Frame dropped; event loop inactive: %s",
					err.Error())
				return
			}
		}

		var cause error
		select {
		case cause = <-x.HupChan():
		default:
		}

		if err := s.Run(func() error {
			onHup(cause)
			return nil
		}); err != nil {
			log.Debugf("Hang-up dropped; event loop inactive: %s", err.Error())
		}
	}()
}
