package main

import "brandmatch_server/commands"

func main() {
	commands.Execute()
}
