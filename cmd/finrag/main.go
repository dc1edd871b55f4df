// Command finrag ingests financial and legislative documents into a vector
// store and serves semantic search over their chunks.
package main

import (
	"context"
	"os"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
