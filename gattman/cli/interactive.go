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
	"strconv"

	"github.com/spf13/cobra"
	"gopkg.in/abiosoft/ishell.v2"

	"github.com/gattkit/gattman/gattman/gmutil"
)

func interactiveRunCmd(cmd *cobra.Command, args []string) {
	shell := ishell.New()
	shell.Println(gmutil.ToolInfo.LongName + " interactive mode; " +
		"type \"help\" for a command list")

	shell.AddCmd(&ishell.Cmd{
		Name: "connect",
		Help: "connect to the configured peer",
		Func: func(c *ishell.Context) {
			if _, err := GetConn(); err != nil {
				c.Println("Error:", err)
				return
			}
			c.Println("Connected")
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "disconnect",
		Help: "tear down the current connection",
		Func: func(c *ishell.Context) {
			conn, err := GetConnIfOpen()
			if err != nil {
				c.Println("Error:", err)
				return
			}

			conn.Disconnect()
			globalConn = nil
			c.Println("Disconnected")
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "discover",
		Help: "discover primary services and characteristics",
		Func: func(c *ishell.Context) {
			conn, err := GetConn()
			if err != nil {
				c.Println("Error:", err)
				return
			}

			svcs, err := conn.DiscoverPrimary()
			if err != nil {
				c.Println("Error:", err)
				return
			}

			for _, svc := range svcs {
				c.Printf("service: %s handles: 0x%04x..0x%04x\n",
					svc.Uuid.String(), svc.StartHandle, svc.EndHandle)

				chrs, err := conn.DiscoverChrs(svc.StartHandle,
					svc.EndHandle, "")
				if err != nil {
					c.Println("Error:", err)
					return
				}

				for _, chr := range chrs {
					c.Printf("    characteristic: %s val: 0x%04x "+
						"props: %s\n", chr.Uuid.String(), chr.ValHandle,
						chr.Properties.String())
				}
			}
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "read",
		Help: "read <handle-or-uuid>",
		Func: func(c *ishell.Context) {
			if len(c.Args) == 0 {
				c.Println("Error: need a handle or UUID")
				return
			}

			conn, err := GetConn()
			if err != nil {
				c.Println("Error:", err)
				return
			}

			if handle, err := parseHandle(c.Args[0]); err == nil {
				val, err := conn.ReadByHandle(handle)
				if err != nil {
					c.Println("Error:", err)
					return
				}
				c.Printf("0x%04x: % x\n", handle, val)
				return
			}

			vals, err := conn.ReadByUuid(c.Args[0])
			if err != nil {
				c.Println("Error:", err)
				return
			}
			for i, val := range vals {
				c.Printf("[%d]: % x\n", i, val)
			}
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "write",
		Help: "write <handle> <hex-value>",
		Func: func(c *ishell.Context) {
			if len(c.Args) < 2 {
				c.Println("Error: need a handle and a hex value")
				return
			}

			handle, err := parseHandle(c.Args[0])
			if err != nil {
				c.Println("Error:", err)
				return
			}

			value, err := parseValue(c.Args[1])
			if err != nil {
				c.Println("Error:", err)
				return
			}

			conn, err := GetConn()
			if err != nil {
				c.Println("Error:", err)
				return
			}

			if err := conn.WriteByHandle(handle, value); err != nil {
				c.Println("Error:", err)
				return
			}
			c.Println("Write successful")
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "mtu",
		Help: "mtu <value>",
		Func: func(c *ishell.Context) {
			if len(c.Args) == 0 {
				c.Println("Error: need an MTU value")
				return
			}

			u, err := strconv.ParseUint(c.Args[0], 0, 16)
			if err != nil {
				c.Println("Error: invalid MTU:", c.Args[0])
				return
			}

			conn, err := GetConn()
			if err != nil {
				c.Println("Error:", err)
				return
			}

			mtu, err := conn.ExchangeMtu(uint16(u))
			if err != nil {
				c.Println("Error:", err)
				return
			}
			c.Println("Negotiated MTU:", mtu)
		},
	})

	shell.Run()
	shell.Close()
}

func interactiveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "interactive",
		Short:   "Run " + gmutil.ToolInfo.ShortName + " in interactive mode",
		Example: "  " + gmutil.ToolInfo.ExeName + " -c myprofile interactive",
		Run:     interactiveRunCmd,
	}
}
