// Package main is the entry point for the todo manager server.
package main

func main() {
	Execute()
}
