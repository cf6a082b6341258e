package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dmitrijs2005/mintflow/internal/client/cli"
)

func main() {
	root := cli.NewApp(cli.DialGRPC).NewRootCmd()
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
