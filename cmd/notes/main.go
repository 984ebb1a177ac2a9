// Command notes serves the multi-user note-taking web application.
package main

import (
	"log"

	"github.com/4slk4/simple-note-taking/internal/app"
)

func run() error {
	theApp, err := app.New()
	if err != nil {
		return err
	}
	defer theApp.Close()

	return theApp.Run()
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
