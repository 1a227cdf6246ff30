package main

import "github.com/nuxeo/spreadsheet-schemas/internal/cli"

func main() {
	cli.Execute()
}
