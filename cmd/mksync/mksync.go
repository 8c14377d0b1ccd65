package main

import (
	"github.com/mksync/mksync/cmd/mksync/internal"
)

func main() {
	internal.Execute()
}
