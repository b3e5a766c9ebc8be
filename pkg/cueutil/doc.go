// SPDX-License-Identifier: MPL-2.0

// Package cueutil loads CUE documents against an embedded schema.
//
// Every CUE input of opexprep (the configuration file and classifier rule
// files) goes through the same three steps:
//
//  1. Compile the embedded schema
//  2. Compile user data and unify it with a schema definition
//  3. Validate and decode into a Go value
//
// # Usage
//
//	//go:embed rules_schema.cue
//	var rulesSchema []byte
//
//	result, err := cueutil.ParseAndDecode[RuleSet](
//	    rulesSchema,
//	    data,
//	    "#RuleSet",
//	    cueutil.WithFilename(path),
//	)
//	if err != nil {
//	    return nil, err // names the file and the offending CUE path
//	}
//	return result.Value, nil
package cueutil
