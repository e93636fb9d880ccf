// Package main is the querykit command: schema migrations, the scripted
// demo, the interactive console, the HTTP server and one-shot intents.
package main

import "os"

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}
