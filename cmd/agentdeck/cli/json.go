// Copyright 2026 The AgentDeck Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"encoding/json"
	"io"
	"os"
	"reflect"

	"github.com/spf13/pflag"
)

// JSONOutput adds a --json flag to a command. Embed it in the
// command's options and call Register from the Flags function.
type JSONOutput struct {
	OutputJSON bool

	// Out receives the JSON. Nil means os.Stdout.
	Out io.Writer
}

// Register adds --json to flagSet.
func (j *JSONOutput) Register(flagSet *pflag.FlagSet) {
	flagSet.BoolVar(&j.OutputJSON, "json", false, "output as JSON")
}

// EmitJSON writes result to Out as indented JSON when --json is
// set. It reports whether it handled the output; on false the caller
// prints text.
func (j *JSONOutput) EmitJSON(result any) (bool, error) {
	if !j.OutputJSON {
		return false, nil
	}
	out := j.Out
	if out == nil {
		out = os.Stdout
	}
	return true, WriteJSON(out, result)
}

// WriteJSON writes value as indented JSON. A nil slice is written as
// [] rather than null.
func WriteJSON(w io.Writer, value any) error {
	if v := reflect.ValueOf(value); v.Kind() == reflect.Slice && v.IsNil() {
		value = reflect.MakeSlice(v.Type(), 0, 0).Interface()
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}
