// Command arithshard groups newline-delimited names into shards by their
// arithmetic-coding keys.
//
// Usage:
//
//	arithshard hash names.txt
//	arithshard generate 1000 50 > names.txt
//	arithshard compare names.txt
//	arithshard inspect names.acsh --verify
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := NewRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
