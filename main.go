package main

import "github.com/mailarc/mailarc/cmd"

func main() {
	cmd.Execute()
}
