// SPDX-License-Identifier: MPL-2.0

// Package cueutil provides the CUE validation helpers shared by the config
// loader and the signature manifest parser.
//
// Every caller follows the same flow: compile the embedded schema, compile
// the input and unify it with a schema definition, then validate and decode.
//
//	//go:embed signature_schema.cue
//	var schema []byte
//
//	res, err := cueutil.ParseAndDecode[doc](schema, data, "#Signature",
//		cueutil.WithFilename("signature.mf"))
//	if err != nil {
//		return nil, err // carries the CUE path of the offending field
//	}
package cueutil
