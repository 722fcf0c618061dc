package main

import (
	"log"

	"toadvault/internal/app"
)

func main() {
	if err := app.RunService(app.Users); err != nil {
		log.Fatal(err)
	}
}
