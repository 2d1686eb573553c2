package main

import "github.com/RyanBlaney/speech-coach/cmd"

func main() {
	cmd.Execute()
}
