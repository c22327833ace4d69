package main

import (
	"os"

	keepsakecmder "github.com/quillhealthco/keepsake/cmd/keepsake"
)

func main() {
	cmd := keepsakecmder.NewKeepsakeCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
