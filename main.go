package main

import "github.com/xiaoyuanzhu-com/flowtrack/cli"

func main() {
	cli.Execute()
}
