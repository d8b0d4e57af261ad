package main

import "github.com/homenode/distrilock/cmd"

func main() {
	cmd.Execute()
}
