package main

import "github.com/OpenTraceLab/nerojtag/cmd/nerojtag/cmd"

func main() {
	cmd.Execute()
}
