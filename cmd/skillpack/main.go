// SPDX-License-Identifier: MPL-2.0

// skillpack packages a skill document and everything it references into a
// distributable layout.
package main

func main() {
	Execute()
}
