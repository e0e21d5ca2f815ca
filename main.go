package main

import (
	"fmt"
	"os"
)

// Version information
const (
	Version = "0.1.0"
	Name    = "VoxMath-Engine"
)

func main() {
	fmt.Printf("%s v%s\n", Name, Version)
	fmt.Println("Array math and pipeline engine for scientific workflows")
	fmt.Println("Status: Development")
	os.Exit(0)
}
