// Command commonnexus reads, validates and rewrites NEXUS files.
//
//	commonnexus validate data.nex
//	commonnexus normalise data.nex > normalised.nex
//	commonnexus combine a.nex b.nex > combined.nex
//	commonnexus multistatise binary.nex > multi.nex
//	cat data.nex | commonnexus binarise -
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
