package domain

import (
	"crypto/rand"
	"math/big"
	"time"
)

// codeAlphabet leaves out 0/O and 1/I so codes survive being read aloud.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// RandomCode returns n characters drawn from codeAlphabet.
func RandomCode(n int) string {
	buf := make([]byte, n)
	limit := big.NewInt(int64(len(codeAlphabet)))
	for i := range buf {
		idx, err := rand.Int(rand.Reader, limit)
		if err != nil {
			panic("crypto/rand unavailable: " + err.Error())
		}
		buf[i] = codeAlphabet[idx.Int64()]
	}
	return string(buf)
}

// NewConfirmationCode returns a reservation code like HSC-7KQ2MX.
func NewConfirmationCode() string {
	return ReservationPrefix + RandomCode(6)
}

// NewOrderNumber returns an order number like ORD-251014-7KQ2MX.
func NewOrderNumber(now time.Time) string {
	return "ORD-" + now.Format("060102") + "-" + RandomCode(6)
}
