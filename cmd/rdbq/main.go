// Command rdbq runs builder queries against a relational database described
// by a YAML entity schema.
package main

import (
	"fmt"
	"os"

	"github.com/syssam/rdb/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "rdbq:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
