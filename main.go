package main

import "github.com/lockplane/lockplane/cmd"

func main() {
	cmd.Execute()
}
