// SPDX-License-Identifier: MPL-2.0

package main

import (
	"os"

	cmd "github.com/motoi/motoi/cmd/motoi"
)

func main() {
	os.Exit(cmd.Execute())
}
