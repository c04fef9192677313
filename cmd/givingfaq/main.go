package main

import (
	"context"
	"fmt"
	"os"
)

// version is set via ldflags at build time
var version = "dev"

func main() {
	if err := NewRootCmd(version).ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "givingfaq: %v\n", err)
		os.Exit(1)
	}
}
