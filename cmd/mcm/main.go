package main

import (
	"os"
)

func main() {
	err := rootCmd.Execute()
	syncLogger()
	if err != nil {
		os.Exit(1)
	}
}
