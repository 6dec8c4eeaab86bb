package main

import (
	"os"

	"github.com/scan-io-git/crnow/cmd"
)

func main() {
	code := cmd.Execute()
	os.Exit(code)
}
