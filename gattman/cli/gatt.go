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
	"strings"

	"github.com/spf13/cobra"

	"github.com/gattkit/gattman/gattact/attdefs"
	"github.com/gattkit/gattman/gattman/config"
	"github.com/gattkit/gattman/gattman/gmutil"
)

// Accepts decimal or 0x-prefixed hex.
func parseHandle(s string) (uint16, error) {
	u, err := strconv.ParseUint(s, 0, 16)
	if err != nil {
		return 0, gmutil.FmtGmError("Invalid attribute handle: %s", s)
	}

	return uint16(u), nil
}

func parseValue(s string) ([]byte, error) {
	s = strings.TrimPrefix(s, "0x")
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, gmutil.FmtGmError("Invalid hex value: %s", s)
	}

	return b, nil
}

func cacheName() string {
	if gmutil.ConnProfile != "" {
		return gmutil.ConnProfile
	}

	return "default"
}

func discoverRunCmd(cmd *cobra.Command, args []string) {
	conn, err := GetConn()
	if err != nil {
		gmExitOnError(err)
	}

	svcs, err := conn.DiscoverPrimary()
	if err != nil {
		gmExitOnError(err)
	}

	if len(svcs) == 0 {
		fmt.Printf("No primary services found\n")
		return
	}

	var cached []config.CachedSvc
	for _, svc := range svcs {
		fmt.Printf("service: %s handles: 0x%04x..0x%04x\n",
			svc.Uuid.String(), svc.StartHandle, svc.EndHandle)

		chrs, err := conn.DiscoverChrs(svc.StartHandle, svc.EndHandle, "")
		if err != nil {
			gmExitOnError(err)
		}

		for _, chr := range chrs {
			fmt.Printf("    characteristic: %s def: 0x%04x val: 0x%04x "+
				"props: %s\n", chr.Uuid.String(), chr.DefHandle,
				chr.ValHandle, chr.Properties.String())
		}

		cached = append(cached, config.CachedSvcFromSvc(svc, chrs))
	}

	if err := config.UpdateProfileCache(cacheName(), conn.AttMtu(),
		cached); err != nil {

		// The cache is an optimization; failing to write it is not fatal.
		fmt.Printf("Warning: couldn't update profile cache: %s\n",
			err.Error())
	}
}

func discoverCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "discover",
		Short: "Discover primary services and their characteristics",
		Example: "  " + gmutil.ToolInfo.ExeName +
			" -c myprofile discover",
		Run: discoverRunCmd,
	}
}

func readRunCmd(cmd *cobra.Command, args []string) {
	if len(args) == 0 {
		gmUsage(cmd, gmutil.NewGmError("Need a handle or UUID to read"))
	}

	conn, err := GetConn()
	if err != nil {
		gmExitOnError(err)
	}

	// A token that parses as a handle is a handle; anything else is
	// treated as a UUID.
	if handle, err := parseHandle(args[0]); err == nil {
		val, err := conn.ReadByHandle(handle)
		if err != nil {
			gmExitOnError(err)
		}

		fmt.Printf("0x%04x: % x\n", handle, val)
		return
	}

	vals, err := conn.ReadByUuid(args[0])
	if err != nil {
		gmExitOnError(err)
	}

	for i, val := range vals {
		fmt.Printf("[%d]: % x\n", i, val)
	}
}

func readCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "read <handle-or-uuid>",
		Short: "Read a characteristic value or descriptor",
		Example: "  " + gmutil.ToolInfo.ExeName + " -c myprofile read 0x0010\n" +
			"  " + gmutil.ToolInfo.ExeName + " -c myprofile read 2a00",
		Run: readRunCmd,
	}
}

func writeRunCmd(cmd *cobra.Command, args []string) {
	if len(args) < 2 {
		gmUsage(cmd, gmutil.NewGmError("Need a handle and a hex value"))
	}

	handle, err := parseHandle(args[0])
	if err != nil {
		gmUsage(cmd, err)
	}

	value, err := parseValue(args[1])
	if err != nil {
		gmUsage(cmd, err)
	}

	conn, err := GetConn()
	if err != nil {
		gmExitOnError(err)
	}

	noRsp, _ := cmd.Flags().GetBool("no-rsp")
	if noRsp {
		if err := conn.WriteCmdByHandle(handle, value); err != nil {
			gmExitOnError(err)
		}
		fmt.Printf("Write command sent\n")
		return
	}

	if err := conn.WriteByHandle(handle, value); err != nil {
		gmExitOnError(err)
	}

	fmt.Printf("Write successful\n")
}

func writeCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "write <handle> <hex-value>",
		Short: "Write a characteristic value or descriptor",
		Example: "  " + gmutil.ToolInfo.ExeName +
			" -c myprofile write 0x0010 0102aabb",
		Run: writeRunCmd,
	}

	c.Flags().Bool("no-rsp", false,
		"Send an unacknowledged write command instead of a write request")

	return c
}

func mtuRunCmd(cmd *cobra.Command, args []string) {
	if len(args) == 0 {
		gmUsage(cmd, gmutil.NewGmError("Need an MTU value"))
	}

	u, err := strconv.ParseUint(args[0], 0, 16)
	if err != nil || u < attdefs.ATT_MTU_DFLT {
		gmUsage(cmd, gmutil.FmtGmError("Invalid MTU: %s", args[0]))
	}

	conn, err := GetConn()
	if err != nil {
		gmExitOnError(err)
	}

	mtu, err := conn.ExchangeMtu(uint16(u))
	if err != nil {
		gmExitOnError(err)
	}

	fmt.Printf("Negotiated MTU: %d\n", mtu)
}

func mtuCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mtu <value>",
		Short: "Exchange the ATT MTU with the connected peer",
		Example: "  " + gmutil.ToolInfo.ExeName +
			" -c myprofile mtu 185",
		Run: mtuRunCmd,
	}
}
