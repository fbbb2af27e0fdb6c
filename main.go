package main

import "github.com/kozaktomas/geo-attendance/cmd"

func main() {
	cmd.Execute()
}
