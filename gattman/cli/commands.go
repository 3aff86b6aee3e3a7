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

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/gattkit/gattman/gattact/gattutil"
	"github.com/gattkit/gattman/gattman/config"
	"github.com/gattkit/gattman/gattman/gmutil"
)

var GattmanLogLevel log.Level
var GattmanHelp bool

func Commands() *cobra.Command {
	logLevelStr := ""
	gmCmd := &cobra.Command{
		Use:   gmutil.ToolInfo.ExeName,
		Short: gmutil.ToolInfo.ShortName + " talks to remote GATT servers",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if logLevelStr == "" {
				logLevelStr = config.GlobalSettings().LogLevel
			}

			var err error
			GattmanLogLevel, err = log.ParseLevel(logLevelStr)
			if err != nil {
				gmUsage(nil, gmutil.ChildGmError(err))
			}

			gattutil.SetLogLevel(GattmanLogLevel)

			// Set cbgo log level if we're using macOS.
			OSSpecificInit()
		},
		Run: func(cmd *cobra.Command, args []string) {
			cmd.HelpFunc()(cmd, args)
		},
	}

	gmCmd.PersistentFlags().StringVarP(&gmutil.ConnProfile, "conn", "c", "",
		"connection profile to use")

	gmCmd.PersistentFlags().Float64VarP(&gmutil.Timeout, "timeout", "t", 15.0,
		"timeout in seconds (partial seconds allowed)")

	gmCmd.PersistentFlags().StringVarP(&logLevelStr, "loglevel", "l", "",
		"log level to use")

	gmCmd.PersistentFlags().StringVar(&gmutil.ConnType, "conntype", "",
		"Connection type to use instead of using the profile's type")

	gmCmd.PersistentFlags().StringVar(&gmutil.ConnString, "connstring", "",
		"Connection key-value pairs to use instead of using the profile's "+
			"connstring")

	gmCmd.PersistentFlags().StringVar(&gmutil.ConnExtra, "connextra", "",
		"Additional key-value pair to append to the connstring")

	gmCmd.PersistentFlags().IntVarP(&gmutil.Mtu, "mtu", "m", 0,
		"ATT MTU to request after connecting; 0 means don't negotiate")

	gmCmd.PersistentFlags().IntVarP(&gmutil.HciIdx, "hci", "i", 0,
		"HCI index for the controller on Linux machine")

	versCmd := &cobra.Command{
		Use:     "version",
		Short:   "Display the " + gmutil.ToolInfo.ShortName + " version number",
		Example: "  " + gmutil.ToolInfo.ExeName + " version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s %s\n",
				gmutil.ToolInfo.LongName,
				gmutil.ToolInfo.VersionString)
		},
	}
	gmCmd.AddCommand(versCmd)

	gmCmd.AddCommand(connProfileCmd())
	gmCmd.AddCommand(discoverCmd())
	gmCmd.AddCommand(readCmd())
	gmCmd.AddCommand(writeCmd())
	gmCmd.AddCommand(mtuCmd())
	gmCmd.AddCommand(listenCmd())
	gmCmd.AddCommand(dumpCmd())
	gmCmd.AddCommand(interactiveCmd())
	gmCmd.AddCommand(scanCmd())

	return gmCmd
}
