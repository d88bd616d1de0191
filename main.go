package main

import "github.com/relloyd/deskpipe/cmd"

func main() {
	cmd.Execute()
}
