// Package main is the entry point for the rotwatch CLI.
package main

import "rotwatch.dev/pkg/rotwatch/cmd"

func main() {
	cmd.Execute()
}
