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
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/gattkit/gattman/gattman/gmutil"
)

var onExitCb func()

func GmSetOnExit(cb func()) {
	onExitCb = cb
}

func gmExit(rc int) {
	if onExitCb != nil {
		onExitCb()
	}
	os.Exit(rc)
}

// Prints an error, optionally the command usage, and exits.
func gmUsage(cmd *cobra.Command, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err.Error())

		if gerr, ok := err.(*gmutil.GmError); ok {
			log.Debugf("Stack trace:\n%s", gerr.StackTrace)
		}
	}

	if cmd != nil {
		fmt.Fprintf(os.Stderr, "\n")
		cmd.HelpFunc()(cmd, nil)
	}

	gmExit(1)
}

// Prints an error and exits without usage text.
func gmExitOnError(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err.Error())

		if gerr, ok := err.(*gmutil.GmError); ok {
			log.Debugf("Stack trace:\n%s", gerr.StackTrace)
		}

		gmExit(1)
	}
}
