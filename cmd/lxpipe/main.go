// Command lxpipe replays log lines through an asynchronous logging pipeline
// and prints or displays what it delivers.
package main

func main() {
	Execute()
}
