package main

import (
	"github.com/DanHalford/HIBP-Breach-Notifier/cmd/notifier/cmd"
)

func main() {
	cmd.Execute()
}
