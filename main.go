package main

import "github.com/theirongolddev/ccproj/cmd"

func main() {
	cmd.Execute()
}
