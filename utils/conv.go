package utils

import (
	"bytes"
	"encoding/binary"

	"github.com/pkg/errors"
	"golang.org/x/text/transform"

	"github.com/mogaika/scene_composer/config"
)

func BytesStringLength(bs []byte) int {
	if l := bytes.IndexByte(bs, 0); l == -1 {
		return len(bs)
	} else {
		return l
	}
}

// BytesToString decodes a NUL-terminated string using the configured legacy encoding.
func BytesToString(bs []byte) (string, error) {
	s, _, err := transform.Bytes(config.GetEncoding().NewDecoder(), bs[:BytesStringLength(bs)])
	if err != nil {
		return "", errors.Wrapf(err, "Failed to decode string")
	}
	return string(s), nil
}

// AsBytes serializes fixed-size data in little endian.
func AsBytes(data ...interface{}) []byte {
	var buf bytes.Buffer
	for _, d := range data {
		if err := binary.Write(&buf, binary.LittleEndian, d); err != nil {
			panic(err)
		}
	}
	return buf.Bytes()
}
