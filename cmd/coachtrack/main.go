package main

import "github.com/claude/coachtrack/cmd/coachtrack/commands"

func main() {
	commands.Execute()
}
