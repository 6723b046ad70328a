package main

import "github.com/iconidentify/dyresolve/internal/cli"

func main() {
	cli.Execute()
}
