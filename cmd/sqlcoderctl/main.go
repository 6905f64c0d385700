package main

import (
	"os"

	"sqlcoderd/internal/ctl"
)

func main() {
	os.Exit(ctl.Main())
}
