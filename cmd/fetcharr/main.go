// Command fetcharr decides which releases to grab and tracks them through
// the configured download clients.
package main

func main() {
	Execute()
}
