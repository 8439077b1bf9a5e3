// Command questionbank serves the role-gated library and question
// generation UI in front of the library REST backend.
package main

import (
	"context"
	"log"

	"github.com/dalemusser/questionbank/internal/app/bootstrap"
	"github.com/dalemusser/waffle/app"
)

func main() {
	if err := app.Run(context.Background(), bootstrap.Hooks); err != nil {
		log.Fatal(err)
	}
}
