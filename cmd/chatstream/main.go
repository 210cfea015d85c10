package main

import "github.com/diogo/chatstream/internal/commands"

func main() {
	commands.Execute()
}
