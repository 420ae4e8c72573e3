package cliflag

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"
)

// Bytes is a size flag accepting human readable values like "64MiB".
type Bytes struct {
	value uint64
}

func NewBytes(def uint64) *Bytes {
	return &Bytes{value: def}
}

// Set implements pflag.Value.
func (b *Bytes) Set(raw string) error {
	value, err := humanize.ParseBytes(raw)
	if err != nil {
		return fmt.Errorf("invalid size %q: %w", raw, err)
	}
	b.value = value
	return nil
}

// String implements pflag.Value.
func (b *Bytes) String() string {
	return humanize.IBytes(b.value)
}

// Type implements pflag.Value.
func (b *Bytes) Type() string {
	return "bytes"
}

func (b *Bytes) Value() uint64 {
	return b.value
}

var _ pflag.Value = (*Bytes)(nil)
