package main

import (
	"github.com/tbergot/spotify-dashboard/cmd"
)

func main() {
	cmd.Execute()
}
