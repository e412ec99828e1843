//go:build !hashdebug

package hash

func checkDepth(int) {}
