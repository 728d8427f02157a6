// SPDX-License-Identifier: Apache-2.0

package json

import (
	"io"

	json "github.com/bytedance/sonic"
)

type Decoder = json.Decoder

// Unmarshaler decodes a payload into the value on input.
type Unmarshaler func(b []byte, v any) error

func Unmarshal(b []byte, v any) error {
	return json.Unmarshal(b, v)
}

func Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

// MarshalIndent is used for human readable outputs, such as the CLI status
// report.
func MarshalIndent(v any) ([]byte, error) {
	return json.ConfigStd.MarshalIndent(v, "", "  ")
}

func NewDecoder(r io.Reader) Decoder {
	return json.ConfigDefault.NewDecoder(r)
}
