package main

import "github.com/sam-phinizy/beer-hall/cmd/beer-hall/cmd"

func main() {
	cmd.Execute()
}
