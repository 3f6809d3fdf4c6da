package main

import (
	"github.com/fivestack/lobbybot/internal/cmd"
)

func main() {
	cmd.Execute()
}
