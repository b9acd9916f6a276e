// Package util contains helper functions used around the code.
package util

// In returns true if v is found in vs, false otherwise.
func In[T comparable](vs []T, v T) bool {
	for _, x := range vs {
		if x == v {
			return true
		}
	}

	return false
}
