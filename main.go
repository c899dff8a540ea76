/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package main

import "github.com/bookshelf-app/server/cmd"

func main() {
	cmd.Execute()
}
