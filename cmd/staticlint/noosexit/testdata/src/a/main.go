package main

import (
	"os"
	sys "os"
)

func main() {
	defer func() {}()
	os.Exit(1)  // want "avoid using os.Exit in main.main"
	sys.Exit(2) // want "avoid using os.Exit in main.main"
}

func helper() {
	os.Exit(3)
}
