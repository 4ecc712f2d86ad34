package main

import (
	"github.com/linehawk/linehawk/cmd/linehawk/commands"
)

func main() {
	commands.Execute()
}
