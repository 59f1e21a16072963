package main

import (
	"github.com/ValentinKolb/smolDB/cmd"
)

func main() {
	cmd.Execute()
}
