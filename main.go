package main

import "github.com/GeorgeBatch/wsi-reader/cmd"

func main() {
	cmd.Execute()
}
