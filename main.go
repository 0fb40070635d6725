package main

import "github.com/KaramelBytes/boardsight/cmd"

func main() {
	cmd.Execute()
}
