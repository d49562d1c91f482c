package main

import "github.com/nfrund/rxbus/cmd/rxbus-cli/cmd"

func main() {
	cmd.Execute()
}
