package main

import "github.com/ValentinKolb/goporto/cmd"

func main() {
	cmd.Execute()
}
