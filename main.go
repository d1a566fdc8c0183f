// The main package for the game-catalog executable.
package main

import (
	"github.com/JakeFAU/game-catalog/cmd"
)

func main() {
	cmd.Execute()
}
