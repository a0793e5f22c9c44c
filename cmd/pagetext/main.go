package main

import "github.com/pagetext-io/pagetext/cmd/pagetext/cmd"

func main() {
	cmd.Execute()
}
