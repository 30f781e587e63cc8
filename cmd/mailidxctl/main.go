// Command mailidxctl inspects and replays a mailidx transaction log.
package main

import (
	"os"

	"github.com/marmos91/mailidx/cmd/mailidxctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
