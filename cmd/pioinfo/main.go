package main

import (
	"fmt"
	"os"

	"github.com/parallelio/pario/internal/pioinfocmd"
)

func main() {
	if err := pioinfocmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
