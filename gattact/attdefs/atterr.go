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

package attdefs

// ATT protocol error codes, as carried in the status byte of an error
// response.  0 means success.
const (
	ATT_ECODE_SUCCESS             uint8 = 0x00
	ATT_ECODE_INVALID_HANDLE            = 0x01
	ATT_ECODE_READ_NOT_PERM             = 0x02
	ATT_ECODE_WRITE_NOT_PERM            = 0x03
	ATT_ECODE_INVALID_PDU               = 0x04
	ATT_ECODE_AUTHENTICATION            = 0x05
	ATT_ECODE_REQ_NOT_SUPP              = 0x06
	ATT_ECODE_INVALID_OFFSET            = 0x07
	ATT_ECODE_AUTHORIZATION             = 0x08
	ATT_ECODE_PREP_QUEUE_FULL           = 0x09
	ATT_ECODE_ATTR_NOT_FOUND            = 0x0a
	ATT_ECODE_ATTR_NOT_LONG             = 0x0b
	ATT_ECODE_INSUFF_ENCR_KEY_SIZE      = 0x0c
	ATT_ECODE_INVAL_ATTR_VALUE_LEN      = 0x0d
	ATT_ECODE_UNLIKELY                  = 0x0e
	ATT_ECODE_INSUFF_ENC                = 0x0f
	ATT_ECODE_UNSUPP_GRP_TYPE           = 0x10
	ATT_ECODE_INSUFF_RESOURCES          = 0x11

	// Not part of the wire protocol; reported locally when a response list
	// fails to decode.
	ATT_ECODE_ABORTED = 0x80
)

var AttEcodeStringMap = map[uint8]string{
	ATT_ECODE_SUCCESS:              "success",
	ATT_ECODE_INVALID_HANDLE:       "invalid handle",
	ATT_ECODE_READ_NOT_PERM:        "attribute can't be read",
	ATT_ECODE_WRITE_NOT_PERM:       "attribute can't be written",
	ATT_ECODE_INVALID_PDU:          "attribute PDU was invalid",
	ATT_ECODE_AUTHENTICATION:       "attribute requires authentication before read/write",
	ATT_ECODE_REQ_NOT_SUPP:         "server doesn't support the request received",
	ATT_ECODE_INVALID_OFFSET:       "offset past the end of the attribute",
	ATT_ECODE_AUTHORIZATION:        "attribute requires authorization before read/write",
	ATT_ECODE_PREP_QUEUE_FULL:      "too many prepare writes have been queued",
	ATT_ECODE_ATTR_NOT_FOUND:       "no attribute found within the given range",
	ATT_ECODE_ATTR_NOT_LONG:        "attribute can't be read/written using Read Blob Req",
	ATT_ECODE_INSUFF_ENCR_KEY_SIZE: "encryption key size is insufficient",
	ATT_ECODE_INVAL_ATTR_VALUE_LEN: "attribute value length is invalid for the operation",
	ATT_ECODE_UNLIKELY:             "request has encountered an unlikely error",
	ATT_ECODE_INSUFF_ENC:           "attribute requires encryption before read/write",
	ATT_ECODE_UNSUPP_GRP_TYPE:      "attribute type is not a supported grouping attribute",
	ATT_ECODE_INSUFF_RESOURCES:     "insufficient resources to complete the request",
	ATT_ECODE_ABORTED:              "response decoding aborted",
}

func AttEcodeToString(e uint8) string {
	s := AttEcodeStringMap[e]
	if s == "" {
		return "unexpected error code"
	}

	return s
}
