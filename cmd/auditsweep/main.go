package main

import "auditsweep/cmd/auditsweep/commands"

func main() {
	commands.Execute()
}
