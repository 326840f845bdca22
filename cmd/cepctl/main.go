// Command cepctl is an operator tool for the region rules and identifier
// codec. Everything except lookup works offline.
package main

import (
	"context"
	"os"
)

func main() {
	if err := newRootCmd(defaultLookup).ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
