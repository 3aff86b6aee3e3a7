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
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"gopkg.in/cheggaaa/pb.v1"

	"github.com/gattkit/gattman/gattact/attdefs"
	"github.com/gattkit/gattman/gattman/gmutil"
)

func dumpRunCmd(cmd *cobra.Command, args []string) {
	if len(args) < 2 {
		gmUsage(cmd, gmutil.NewGmError(
			"Need a start handle and a handle count"))
	}

	start, err := parseHandle(args[0])
	if err != nil {
		gmUsage(cmd, err)
	}

	count, err := strconv.Atoi(args[1])
	if err != nil || count <= 0 {
		gmUsage(cmd, gmutil.FmtGmError("Invalid handle count: %s", args[1]))
	}
	if int(start)+count-1 > int(attdefs.ATT_HANDLE_MAX) {
		gmUsage(cmd, gmutil.FmtGmError(
			"Handle range exceeds 0x%04x", attdefs.ATT_HANDLE_MAX))
	}

	conn, err := GetConn()
	if err != nil {
		gmExitOnError(err)
	}

	bar := pb.New(count)
	bar.Start()

	type dumpEntry struct {
		handle uint16
		value  []byte
		err    error
	}

	var entries []dumpEntry
	for i := 0; i < count; i++ {
		handle := start + uint16(i)

		value, err := conn.ReadByHandle(handle)
		entries = append(entries, dumpEntry{
			handle: handle,
			value:  value,
			err:    err,
		})

		bar.Increment()
	}
	bar.Finish()

	for _, e := range entries {
		if e.err != nil {
			fmt.Printf("0x%04x: <%s>\n", e.handle, e.err.Error())
		} else {
			fmt.Printf("0x%04x:\n%s", e.handle, hex.Dump(e.value))
		}
	}
}

func dumpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dump <start-handle> <count>",
		Short: "Read and dump a contiguous range of attribute handles",
		Example: "  " + gmutil.ToolInfo.ExeName +
			" -c myprofile dump 0x0001 20",
		Run: dumpRunCmd,
	}
}
