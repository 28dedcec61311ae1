package main

import "github.com/schedulaa/ms-go-checkout/cmd"

func main() {
	cmd.Execute()
}
