package main

import (
	"log"

	"toadvault/internal/app"
)

func main() {
	if err := app.RunService(app.Products); err != nil {
		log.Fatal(err)
	}
}
