package main

import "github.com/mselser95/quoter/cmd"

func main() {
	cmd.Execute()
}
