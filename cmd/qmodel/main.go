// Command qmodel builds, translates and runs query pipeline documents.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/querymodel/internal/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(cli.GetExitCode(err))
}
