package main

import "github.com/nhle/notesync/internal/cli"

func main() {
	cli.Execute()
}
