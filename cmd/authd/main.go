package main

import "github.com/jmurielSett/secHTTPS-sub001/cmd/authd/cmd"

func main() {
	cmd.Execute()
}
