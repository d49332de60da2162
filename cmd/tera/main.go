// Package main is the entry point for the Tera module engine.
package main

func main() {
	Execute()
}
