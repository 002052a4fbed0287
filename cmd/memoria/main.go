package main

import "memoria/internal/cmd"

func main() {
	cmd.Run()
}
