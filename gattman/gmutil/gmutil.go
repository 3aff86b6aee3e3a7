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

package gmutil

import (
	"fmt"
	"runtime"
	"time"

	"github.com/pkg/errors"
)

type ToolInfoType struct {
	ExeName          string
	ShortName        string
	LongName         string
	VersionString    string
	CfgFilename      string
	SettingsFilename string
	CacheFilename    string
}

var Timeout float64
var ConnProfile string
var ConnType string
var ConnString string
var ConnExtra string
var Mtu int
var HciIdx int

var ToolInfo = ToolInfoType{
	ExeName:          "gattman",
	ShortName:        "gattman",
	LongName:         "gattman - GATT client tool",
	VersionString:    "0.2.0-dev",
	CfgFilename:      ".gattman.cp.json",
	SettingsFilename: ".gattman.yml",
	CacheFilename:    ".gattman.cache.cb",
}

func TxTimeout() time.Duration {
	return time.Duration(Timeout * float64(time.Second))
}

// Tool-level error; carries the stack trace of its creation.
type GmError struct {
	Parent     error
	Text       string
	StackTrace []byte
}

func (e *GmError) Error() string {
	return e.Text
}

func NewGmError(msg string) *GmError {
	err := &GmError{
		Text:       msg,
		StackTrace: make([]byte, 65536),
	}
	stackLen := runtime.Stack(err.StackTrace, true)
	err.StackTrace = err.StackTrace[:stackLen]

	return err
}

func FmtGmError(format string, args ...interface{}) *GmError {
	return NewGmError(fmt.Sprintf(format, args...))
}

// Wraps an error from a lower layer without losing its text.
func ChildGmError(parent error) *GmError {
	err := NewGmError(parent.Error())
	err.Parent = parent
	return err
}

func ErrorCausedBy(err error, cause error) bool {
	cur := err
	for {
		if cur == cause {
			return true
		}

		child := errors.Cause(cur)
		if child == cur {
			return false
		}

		cur = child
	}
}

func PrintStacks() {
	buf := make([]byte, 1024*1024)
	stacklen := runtime.Stack(buf, true)
	fmt.Printf("*** goroutine dump\n%s\n*** end\n", buf[:stacklen])
}
