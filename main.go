package main

import "github.com/altayar/tourism-backend/cmd"

func main() {
	cmd.Execute()
}
