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
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/gattkit/gattman/gattman/config"
	"github.com/gattkit/gattman/gattman/gmutil"
)

// Prints incoming notifications and indications.  Indications are
// confirmed by the connection after this handler returns.
type printNotifyHandler struct{}

func (printNotifyHandler) OnNotification(handle uint16, data []byte) {
	fmt.Printf("notification: handle=0x%04x value=% x\n", handle, data)
}

func (printNotifyHandler) OnIndication(handle uint16, data []byte) {
	fmt.Printf("indication:   handle=0x%04x value=% x\n", handle, data)
}

func listenRunCmd(cmd *cobra.Command, args []string) {
	secs := config.GlobalSettings().ListenSecs
	if len(args) > 0 {
		var err error
		secs, err = strconv.Atoi(args[0])
		if err != nil || secs < 0 {
			gmUsage(cmd, gmutil.FmtGmError("Invalid duration: %s", args[0]))
		}
	}

	conn, err := GetConnWithHandler(printNotifyHandler{})
	if err != nil {
		gmExitOnError(err)
	}

	if secs == 0 {
		fmt.Printf("Listening; ctrl-c to stop\n")
		select {}
	}

	fmt.Printf("Listening for %d seconds\n", secs)
	time.Sleep(time.Duration(secs) * time.Second)

	conn.Disconnect()
}

func listenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "listen [seconds]",
		Short: "Print incoming notifications and indications",
		Long: "Stay connected and print every notification and indication " +
			"the peer sends.\nWith no argument (and no listen_secs setting) " +
			"this listens until interrupted.",
		Example: "  " + gmutil.ToolInfo.ExeName + " -c myprofile listen 30",
		Run:     listenRunCmd,
	}
}
