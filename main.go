// The main package for the primerblast executable.
package main

import (
	"github.com/JakeFAU/primerblast-validator/cmd"
)

func main() {
	cmd.Execute()
}
