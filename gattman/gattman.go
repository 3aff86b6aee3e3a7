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

package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gattkit/gattman/gattact/serhost"
	"github.com/gattkit/gattman/gattman/cli"
	"github.com/gattkit/gattman/gattman/config"
	"github.com/gattkit/gattman/gattman/gmutil"
)

func main() {
	if err := config.InitGlobalConnProfileMgr(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err.Error())
		os.Exit(1)
	}

	onExit := func() {
		c, err := cli.GetConnIfOpen()
		if err == nil {
			// Don't attempt to stop a serial transport.  Closing the serial
			// port while a read is in progress (in MacOS) just blocks until
			// the read completes.  Instead, let the OS close the port on
			// termination.
			if x, err := cli.GetXportIfOpen(); err == nil {
				if _, ok := x.(*serhost.SerialXport); ok {
					return
				}
			}

			c.Disconnect()
		}
	}
	defer onExit()
	cli.GmSetOnExit(onExit)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan)

	go func() {
		for {
			s := <-sigChan
			switch s {
			case os.Interrupt, syscall.SIGTERM:
				onExit()
				os.Exit(0)

			case syscall.SIGQUIT:
				gmutil.PrintStacks()
			}
		}
	}()

	cli.Commands().Execute()
}
