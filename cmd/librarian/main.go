// Command librarian runs maintenance tasks against the catalog database:
// schema migrations, bulk book imports, session purges and admin provisioning.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
