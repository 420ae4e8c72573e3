package cliflag

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// OneOf is a flag restricted to a fixed set of spellings, each parsed into T.
type OneOf[T any] struct {
	allowed []string
	parse   func(string) (T, error)
	raw     string
	value   T
}

// Set implements pflag.Value.
func (o *OneOf[T]) Set(raw string) error {
	if !slices.Contains(o.allowed, raw) {
		return fmt.Errorf("unexpected value %q, expected one of [%v]", raw, o.Variants())
	}
	value, err := o.parse(raw)
	if err != nil {
		return err
	}
	o.raw = raw
	o.value = value
	return nil
}

// String implements pflag.Value.
func (o *OneOf[T]) String() string {
	return o.raw
}

// Type implements pflag.Value.
func (o *OneOf[T]) Type() string {
	return "string"
}

func (o *OneOf[T]) Value() T {
	return o.value
}

func (o *OneOf[T]) Variants() string {
	return strings.Join(o.allowed, ", ")
}

// NewOneOf panics when def does not parse, which is a programming error.
func NewOneOf[T any](def string, parse func(string) (T, error), allowed ...string) *OneOf[T] {
	o := &OneOf[T]{allowed: allowed, parse: parse}
	if err := o.Set(def); err != nil {
		panic(err)
	}
	return o
}

// Complete plugs OneOf flags into cobra completion:
//
//	mode := cliflag.NewOneOf("icicle", geometry.ParseMode, "icicle", "flamechart")
//	cmd.Flags().Var(mode, "mode", "layout, one of "+mode.Variants())
//	cmd.RegisterFlagCompletionFunc("mode", mode.Complete)
func (o *OneOf[T]) Complete(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return o.allowed, cobra.ShellCompDirectiveKeepOrder | cobra.ShellCompDirectiveNoFileComp
}

var _ pflag.Value = (*OneOf[int])(nil)
