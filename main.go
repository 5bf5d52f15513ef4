package main

import (
	"PlayFM/cmd"
)

func main() {
	cmd.Execute()
}
