package main

import "callscribe/cmd/callscribe/cmd"

func main() {
	cmd.Execute()
}
