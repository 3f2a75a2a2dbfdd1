package main

import "github.com/rallytrack/tracking-service-manager-go/cmd"

func main() {
	cmd.Execute()
}
