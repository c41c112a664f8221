package main

import "github.com/Tiliavir/hos-tracker/cmd"

func main() {
	cmd.Execute()
}
