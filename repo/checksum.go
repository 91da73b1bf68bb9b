package repo

import "crypto/sha1"

func sha1Sum(data []byte) []byte {
	sum := sha1.Sum(data)
	return sum[:]
}
