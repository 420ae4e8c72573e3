package maxprocs

import (
	"fmt"
	"os"

	"go.uber.org/automaxprocs/maxprocs"
)

// Adjust matches GOMAXPROCS to the container CPU quota. logf receives the
// library's progress messages and may be nil.
func Adjust(logf func(format string, args ...any)) {
	opts := []maxprocs.Option{}
	if logf != nil {
		opts = append(opts, maxprocs.Logger(logf))
	}
	_, err := maxprocs.Set(opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to set GOMAXPROCS: %v\n", err)
	}
}
