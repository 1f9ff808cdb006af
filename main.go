package main

import "github.com/startterm/startsh/cmd"

func main() {
	cmd.Execute()
}
