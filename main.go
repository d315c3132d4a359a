package main

import "github.com/chenjuwe/photo-dedup/cmd"

func main() {
	cmd.Execute()
}
