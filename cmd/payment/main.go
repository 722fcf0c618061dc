package main

import (
	"log"

	"toadvault/internal/app"
)

func main() {
	if err := app.RunService(app.Payments); err != nil {
		log.Fatal(err)
	}
}
