// Command langquestctl is the LangQuest admin CLI: schema migrations,
// content import and development tokens.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
