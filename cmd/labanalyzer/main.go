package main

import "labanalyzer/internal/cli"

func main() {
	cli.Execute()
}
