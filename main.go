package main

import "anime-dubber/internal/cli"

func main() {
	cli.Main()
}
