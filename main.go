package main

import "github.com/deploymenttheory/go-service-composer/cmd"

func main() {
	cmd.Execute()
}
