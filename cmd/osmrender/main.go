package main

import "github.com/beetlebugorg/osmrender/cmd/osmrender/cmd"

func main() {
	cmd.Execute()
}
