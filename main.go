/*
Copyright © 2025 Andrew Melnick meln5674.5674@gmail.com
*/
package main

import "github.com/meln5674/tinysite/cmd"

func main() {
	cmd.Execute()
}
