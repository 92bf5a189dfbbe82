package main

import "github.com/theakshaypant/gridcal/cmd/gridcal/cmd"

func main() {
	cmd.Execute()
}
