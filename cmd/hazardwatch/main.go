// hazardwatch scores categorical observations into a danger probability
// and reports Safe/Caution/High/Critical on a fixed cadence.
package main

import "github.com/ppiankov/hazardwatch/internal/cli"

func main() {
	cli.Execute()
}
