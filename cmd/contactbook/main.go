// The contactbook command serves the multi-tenant contact book API.
//
// Configuration comes from flags, environment variables (and a .env file)
// or a JSON file named by -c / CONFIG; see internal/config.
package main

import (
	"log"

	"github.com/patric-chuzhbe/contactbook/internal/app"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	theApp, err := app.New()
	if err != nil {
		return err
	}
	defer theApp.Close()

	return theApp.Run()
}
