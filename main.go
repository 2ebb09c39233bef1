package main

import (
	"os"

	"github.com/Abhay650/RakshaNeeti/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
