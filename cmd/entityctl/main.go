// Command entityctl compiles entity collection definitions, runs command
// scenarios against them and inspects the command journal.
//
// Usage:
//
//	entityctl validate ./collections
//	entityctl test ./collections ./scenarios
//	entityctl trace --journal ./journal.db
package main

import (
	"fmt"
	"os"

	"github.com/roach88/entitystate/internal/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(cli.GetExitCode(err))
}
