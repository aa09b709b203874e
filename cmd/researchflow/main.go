// Command researchflow runs the deep research and agentic RAG workflows and
// manages the agent registry.
package main

import "os"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
