package server

import (
	"crypto/rand"
	"math/big"
)

const (
	defaultPasscodeLen = 6
	passcodeAlphabet   = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

// randomPasscode draws from digits and upper-case letters; comparison ignores case.
func randomPasscode(n int) string {
	limit := big.NewInt(int64(len(passcodeAlphabet)))
	out := make([]byte, n)
	for i := range out {
		v, err := rand.Int(rand.Reader, limit)
		if err != nil {
			panic("crypto/rand: " + err.Error())
		}
		out[i] = passcodeAlphabet[v.Int64()]
	}
	return string(out)
}
