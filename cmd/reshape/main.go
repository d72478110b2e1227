// Package main is the entry point for the reshape server and CLI.
package main

func main() {
	Execute()
}
