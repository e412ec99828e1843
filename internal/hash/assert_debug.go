//go:build hashdebug

package hash

import "fmt"

func checkDepth(depth int) {
	if depth+2 < 0 || depth+2 > 255 {
		panic(fmt.Sprintf("hash: depth %d outside encodable range [-2, 253]", depth))
	}
}
