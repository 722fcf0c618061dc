package main

import (
	"log"

	"toadvault/internal/app"
)

func main() {
	if err := app.RunService(app.Inventory); err != nil {
		log.Fatal(err)
	}
}
