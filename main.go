package main

import "github.com/tillgo/fastcgi/cmd"

func main() {
	cmd.Execute()
}
