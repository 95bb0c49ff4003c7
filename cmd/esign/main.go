package main

import (
	"log"
	"os"

	"github.com/keboola/esignature/cli"
)

func main() {
	log.SetFlags(0)
	if err := cli.Run(os.Args[1:]); err != nil {
		log.Printf("esign: %v", err)
		os.Exit(1)
	}
}
