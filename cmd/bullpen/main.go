// Command bullpen syncs MLB prediction tables into the dashboard data
// directory and renders the picks boards.
package main

import "github.com/mesh-intelligence/bullpen/internal/cli"

func main() {
	cli.Execute()
}
