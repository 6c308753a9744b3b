// Command ragcat is the entry point for the data catalog RAG assistant.
// It loads pre-authored catalog documents into a vector store and answers
// natural language questions about the tracked table, either from the CLI
// or through an HTTP server.
package main

import (
	"fmt"
	"os"

	"github.com/quanfold/ragcat-go/cmd/ragcat/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
