package main

import (
	"github.com/bnema/hangar/cmd"
)

var (
	version string
	commit  string
	date    string
)

func main() {
	cmd.Execute(version, commit, date)
}
