// Command shelf reads, writes and watches keys in persistent, session and
// cookie storage.
package main

import "github.com/mesh-intelligence/shelf/internal/cli"

func main() {
	cli.Execute()
}
