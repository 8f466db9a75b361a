package main

import (
	"github.com/ColonelBlimp/morsekey/cmd"
	"github.com/ColonelBlimp/morsekey/internal/recovery"
)

func main() {
	defer recovery.HandlePanic()
	cmd.Execute()
}
