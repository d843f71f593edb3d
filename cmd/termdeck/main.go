package main

import "termdeck/cmd/termdeck/cmd"

func main() {
	cmd.Execute()
}
