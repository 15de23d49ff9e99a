package main

import "github.com/visiona/framecast/cmd"

func main() {
	cmd.Execute()
}
