package main

import "github.com/nextlevelbuilder/cogman/cmd"

func main() {
	cmd.Execute()
}
