package main

import (
	"github.com/foomo/contactserver/cmd"
)

func main() {
	cmd.Execute()
}
