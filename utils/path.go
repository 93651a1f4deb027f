package utils

import (
	"flag"
	"fmt"
	"os"
)

// MakePath returns a string based on whether a Go package path was provided or not.
// The first non-flag argument passed to golazy is the target package.
// If no path is provided, the current working directory is used.
func MakePath() (path string) {
	path, err := os.Getwd()
	if err != nil {
		fmt.Println(err)
		return
	}
	if args := flag.Args(); len(args) >= 1 {
		path = args[0]
	}

	return
}
