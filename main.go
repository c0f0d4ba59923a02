package main

import "github.com/hirelane/portal/cmd"

func main() {
	cmd.Execute()
}
