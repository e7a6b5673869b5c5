package main

import (
	"fmt"
	"os"
)

func main() {
	rootCmd := newRootCommand(os.Stdin, os.Stdout, os.Stderr)
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
