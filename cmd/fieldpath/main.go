// fieldpath resolves kernel access paths against a target's type
// layout and reports which identity fields a sensor can extract there.
package main

import (
	"fmt"
	"os"

	"github.com/frobware/go-fieldpath/cmd/fieldpath/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
