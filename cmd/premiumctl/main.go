package main

import "github.com/shamar-morrison/show-seek-sub001/internal/cli"

func main() {
	cli.Execute()
}
