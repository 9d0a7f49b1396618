package main

import "github.com/aweris/localstorage/cmd/localstorage/cmd"

func main() {
	cmd.Execute()
}
