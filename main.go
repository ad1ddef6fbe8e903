package main

import "github.com/dotcommander/mbiscore/cmd"

func main() {
	cmd.Execute()
}
