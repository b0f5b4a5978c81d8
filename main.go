package main

import (
	"os"

	"github.com/SOLUCIONESSYCOM/glassflow_demo/cmd"
)

func main() {
	os.Exit(cmd.Execute(os.Args[1:], os.Stdout, os.Stderr))
}
