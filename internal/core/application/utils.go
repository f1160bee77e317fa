package application

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

var zeroAddress = common.Address{}

func txURL(explorerURL string, hash common.Hash) string {
	if explorerURL == "" {
		return ""
	}
	return explorerURL + "tx/" + hash.Hex()
}

func accountURL(explorerURL string, account common.Address) string {
	if explorerURL == "" || account == zeroAddress {
		return ""
	}
	return explorerURL + "address/" + account.Hex()
}

// shortenAddress truncates the checksummed address to the given length,
// ie. 0x5B38...ddC4 for length 13.
func shortenAddress(account common.Address, length int) string {
	if length <= 0 {
		return ""
	}
	address := account.Hex()
	if length >= len(address) {
		return address
	}

	left := (length-3)/2 + 1
	right := length - (left + 3)
	if right < 0 {
		right = 0
	}
	return fmt.Sprintf("%s...%s", address[:left], address[len(address)-right:])
}
