package main

import "github.com/ValentinKolb/pollnet/cmd"

func main() {
	cmd.Execute()
}
