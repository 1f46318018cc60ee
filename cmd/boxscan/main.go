package main

import "github.com/veridose/boxscan/cmd/boxscan/cmd"

func main() {
	cmd.Execute()
}
