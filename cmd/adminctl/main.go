// Command adminctl signs an operator in to the Eyegonal back office from a
// terminal and keeps the session in a local bbolt file.
package main

import "github.com/yanizio/eyegonal/cmd/adminctl/cmd"

func main() { cmd.Execute() }
