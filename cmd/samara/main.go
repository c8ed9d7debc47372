// samara is the CLI for the personal awareness substrate.
package main

import (
	"os"

	"github.com/steveyegge/samara/internal/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
