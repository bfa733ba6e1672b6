package main

import "outrider/cmd"

func main() {
	cmd.Execute()
}
