// Command scorequeue records scoring actions on a device while offline and
// replays them against the score API when asked to.
package main

import "os"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
