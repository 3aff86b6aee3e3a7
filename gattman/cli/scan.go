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
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/JuulLabs-OSS/ble"
	"github.com/JuulLabs-OSS/ble/examples/lib/dev"
	"github.com/spf13/cobra"

	"github.com/gattkit/gattman/gattman/gmutil"
)

// Scanning talks to the local controller directly; it does not go
// through a connection profile or the host daemon.
func scanRunCmd(cmd *cobra.Command, args []string) {
	secs := 10
	if len(args) > 0 {
		var err error
		secs, err = strconv.Atoi(args[0])
		if err != nil || secs <= 0 {
			gmUsage(cmd, gmutil.FmtGmError("Invalid duration: %s", args[0]))
		}
	}

	d, err := dev.NewDevice(fmt.Sprintf("hci%d", gmutil.HciIdx))
	if err != nil {
		gmExitOnError(gmutil.FmtGmError("Can't open device: %s", err.Error()))
	}
	ble.SetDefaultDevice(d)

	seen := map[string]bool{}
	advHandler := func(a ble.Advertisement) {
		addr := a.Addr().String()
		if seen[addr] {
			return
		}
		seen[addr] = true

		name := a.LocalName()
		if name == "" {
			name = "(no name)"
		}
		fmt.Printf("%s rssi=%-4d %s\n", addr, a.RSSI(), name)
	}

	fmt.Printf("Scanning for %d seconds...\n", secs)

	ctx := ble.WithSigHandler(context.WithTimeout(context.Background(),
		time.Duration(secs)*time.Second))
	err = ble.Scan(ctx, false, advHandler, nil)
	if err != nil && err != context.DeadlineExceeded &&
		err != context.Canceled {

		gmExitOnError(gmutil.ChildGmError(err))
	}
}

func scanCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "scan [seconds]",
		Short:   "Scan for advertising BLE devices",
		Example: "  " + gmutil.ToolInfo.ExeName + " scan 5",
		Run:     scanRunCmd,
	}
}
