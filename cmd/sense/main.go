package main

import "github.com/rewired-gh/sense/internal/cmd"

func main() {
	cmd.Execute()
}
