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
	"fmt"
)

// Indicates an operation that is invalid for the connection's current
// state (e.g., connect while already connecting or connected).
type InvalidStateError struct {
	Text string
}

func NewInvalidStateError(text string) *InvalidStateError {
	return &InvalidStateError{
		Text: text,
	}
}

func FmtInvalidStateError(format string,
	args ...interface{}) *InvalidStateError {

	return NewInvalidStateError(fmt.Sprintf(format, args...))
}

func (e *InvalidStateError) Error() string {
	return e.Text
}

func IsInvalidState(err error) bool {
	_, ok := err.(*InvalidStateError)
	return ok
}

// Indicates an operation that requires an established connection.
type NotConnectedError struct {
	Text string
}

func NewNotConnectedError(text string) *NotConnectedError {
	return &NotConnectedError{
		Text: text,
	}
}

func (e *NotConnectedError) Error() string {
	return e.Text
}

func IsNotConnected(err error) bool {
	_, ok := err.(*NotConnectedError)
	return ok
}

// Indicates a malformed argument (e.g., an invalid UUID filter string),
// detected before any I/O is attempted.
type InvalidArgError struct {
	Text string
}

func NewInvalidArgError(text string) *InvalidArgError {
	return &InvalidArgError{
		Text: text,
	}
}

func FmtInvalidArgError(format string, args ...interface{}) *InvalidArgError {
	return NewInvalidArgError(fmt.Sprintf(format, args...))
}

func (e *InvalidArgError) Error() string {
	return e.Text
}

func IsInvalidArg(err error) bool {
	_, ok := err.(*InvalidArgError)
	return ok
}

// Indicates a deadline exceeded while waiting for the channel and protocol
// session to become ready after a connect.
type ChannelNotReadyError struct {
	Text string
}

func NewChannelNotReadyError(text string) *ChannelNotReadyError {
	return &ChannelNotReadyError{
		Text: text,
	}
}

func (e *ChannelNotReadyError) Error() string {
	return e.Text
}

func IsChannelNotReady(err error) bool {
	_, ok := err.(*ChannelNotReadyError)
	return ok
}

// Represents an application-layer timeout; request sent, but no response
// received within the deadline.
type RspTimeoutError struct {
	Text string
}

func NewRspTimeoutError(text string) *RspTimeoutError {
	return &RspTimeoutError{
		Text: text,
	}
}

func FmtRspTimeoutError(format string, args ...interface{}) *RspTimeoutError {
	return NewRspTimeoutError(fmt.Sprintf(format, args...))
}

func (e *RspTimeoutError) Error() string {
	return e.Text
}

func IsRspTimeout(err error) bool {
	_, ok := err.(*RspTimeoutError)
	return ok
}

// Indicates a request that could not be initiated (the codec refused the
// send; no correlation handle was issued).
type RequestFailedError struct {
	Text string
}

func NewRequestFailedError(text string) *RequestFailedError {
	return &RequestFailedError{
		Text: text,
	}
}

func FmtRequestFailedError(format string,
	args ...interface{}) *RequestFailedError {

	return NewRequestFailedError(fmt.Sprintf(format, args...))
}

func (e *RequestFailedError) Error() string {
	return e.Text
}

func IsRequestFailed(err error) bool {
	_, ok := err.(*RequestFailedError)
	return ok
}

// Represents a non-zero ATT status returned by the remote.
type AttError struct {
	Text   string
	Status uint8
}

func NewAttError(status uint8, text string) *AttError {
	return &AttError{
		Status: status,
		Text:   text,
	}
}

func FmtAttError(status uint8, format string, args ...interface{}) *AttError {
	return NewAttError(status, fmt.Sprintf(format, args...))
}

func (e *AttError) Error() string {
	return e.Text
}

func IsAtt(err error) bool {
	_, ok := err.(*AttError)
	return ok
}

func ToAtt(err error) *AttError {
	if aerr, ok := err.(*AttError); ok {
		return aerr
	} else {
		return nil
	}
}

// Represents a low-level transport error.
type XportError struct {
	Text string
}

func NewXportError(text string) *XportError {
	return &XportError{text}
}

func FmtXportError(format string, args ...interface{}) *XportError {
	return NewXportError(fmt.Sprintf(format, args...))
}

func (e *XportError) Error() string {
	return e.Text
}

func IsXport(err error) bool {
	if err == nil {
		return false
	}

	_, ok := err.(*XportError)
	return ok
}
