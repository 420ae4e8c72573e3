package main

import (
	"github.com/yandex/perforator-flame/internal/flamecli/cmd"
	"github.com/yandex/perforator-flame/pkg/maxprocs"
)

func main() {
	maxprocs.Adjust(nil)
	cmd.Execute()
}
