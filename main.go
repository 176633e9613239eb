package main

import "github.com/frahmantamala/workspace-management/cmd"

func main() {
	cmd.Execute()
}
