// Command epsilon runs the privacy-budget accountant.
package main

func main() {
	Execute()
}
