package main

import "github.com/recallhq/recall/cmd"

func main() {
	cmd.Execute()
}
