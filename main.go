// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/opexprep/opexprep/cmd/opexprep"

func main() {
	cmd.Execute()
}
