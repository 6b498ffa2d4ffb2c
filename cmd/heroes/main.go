package main

import "github.com/hashing-heroes/heroes/internal/cli"

func main() {
	cli.Execute()
}
