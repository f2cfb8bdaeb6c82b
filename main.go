package main

import "github.com/retrace-dev/retrace/cmd"

func main() {
	cmd.Execute()
}
