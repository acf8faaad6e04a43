// Public domain.

package main

import "github.com/soniakeys/model3d/internal/m3prog"

func main() {
	m3prog.Main()
}
