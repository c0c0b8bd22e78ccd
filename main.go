package main

import "github.com/Norgate-AV/footprint/cmd"

func main() {
	cmd.Execute()
}
