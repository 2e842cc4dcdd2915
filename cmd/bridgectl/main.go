package main

import "github.com/nfrund/tradedesk/cmd/bridgectl/cmd"

func main() {
	cmd.Execute()
}
