package main

import (
	"github.com/codesentry/codesentry/cmd"
)

func main() {
	cmd.Execute()
}
