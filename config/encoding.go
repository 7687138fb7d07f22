package config

import (
	"sync/atomic"

	"github.com/pkg/errors"
	"golang.org/x/text/encoding/charmap"
)

// read by decoders on worker goroutines while a reload may replace it
var currentCharMap atomic.Pointer[charmap.Charmap]

func init() {
	currentCharMap.Store(charmap.Windows1252)
}

// SetEncoding selects the legacy charmap used for names that are not valid UTF-8.
func SetEncoding(name string) error {
	for _, enc := range charmap.All {
		if cm, ok := enc.(*charmap.Charmap); ok {
			if cm.String() == name {
				currentCharMap.Store(cm)
				return nil
			}
		}
	}
	return errors.Errorf("Failed to find encoding %q", name)
}

func ListEncodings() []string {
	list := make([]string, 0)
	for _, enc := range charmap.All {
		if cm, ok := enc.(*charmap.Charmap); ok {
			list = append(list, cm.String())
		}
	}
	return list
}

func GetEncoding() *charmap.Charmap {
	return currentCharMap.Load()
}
