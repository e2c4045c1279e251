package transport

import (
	"encoding/hex"
	"fmt"
)

// Advertisement constants used when scanning for locks.
const (
	// CompanyID is the manufacturer-data company identifier.
	CompanyID = 0x013b

	// MACAddressOffset is where the lock's MAC address starts in the
	// manufacturer data.
	MACAddressOffset = 7

	// MACAddressSize is the MAC address length.
	MACAddressSize = 6
)

// Manufacturer-data prefixes selecting locks by pairing state. Compare them
// with MatchManufacturerData under PairingStateMask.
var (
	PairedPrefix     = []byte{0x00, 0x00, 0x00, 0x02}
	UnpairedPrefix   = []byte{0x00, 0x00, 0x00, 0x00}
	PairingStateMask = []byte{0x00, 0x00, 0x00, 0xff}
)

// MatchManufacturerData reports whether data starts with prefix. Bits
// cleared in mask are ignored; a nil mask compares every bit.
func MatchManufacturerData(data, prefix, mask []byte) bool {
	if len(data) < len(prefix) || (mask != nil && len(mask) < len(prefix)) {
		return false
	}
	for i := range prefix {
		a, b := prefix[i], data[i]
		if mask != nil {
			a &= mask[i]
			b &= mask[i]
		}
		if a != b {
			return false
		}
	}
	return true
}

// AddressFromManufacturerData extracts the lock's MAC address as lowercase
// hex, the form Peripheral.Address returns.
func AddressFromManufacturerData(data []byte) (string, error) {
	if len(data) < MACAddressOffset+MACAddressSize {
		return "", fmt.Errorf("%w: %d bytes", ErrShortManufacturerData, len(data))
	}
	return hex.EncodeToString(data[MACAddressOffset : MACAddressOffset+MACAddressSize]), nil
}
