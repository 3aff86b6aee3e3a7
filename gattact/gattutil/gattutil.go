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

package gattutil

import (
	"math/rand"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

var nextId uint32
var idBeenRead bool
var idMutex sync.Mutex

// Allocates a process-unique id; used to distinguish connections and
// listeners in log output.  Starts at a random value so that ids from
// consecutive runs don't collide in merged logs.
func NextId() uint32 {
	idMutex.Lock()
	defer idMutex.Unlock()

	if !idBeenRead {
		nextId = rand.Uint32()
		idBeenRead = true
	}

	val := nextId
	nextId++

	return val
}

func Assert(cond bool) {
	if !cond {
		panic("assertion failed")
	}
}

func StopAndDrainTimer(timer *time.Timer) {
	if !timer.Stop() {
		<-timer.C
	}
}

func SetLogLevel(level log.Level) {
	log.SetLevel(level)
}
