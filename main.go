package main

import (
	"fmt"
	"os"

	"github.com/xhd2015/finchat-e2e/run"
)

func main() {
	err := run.Run(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, run.ErrorMessage(err))
		os.Exit(1)
	}
}
