package main

import (
	"os"

	"github.com/user/secgate/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
