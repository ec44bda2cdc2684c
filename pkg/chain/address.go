package chain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/mr-tron/base58"
)

// tronAddressPrefix is the version byte of mainnet tron-style addresses.
const tronAddressPrefix = 0x41

// DecodeTronAddress decodes a base58check address into its 21-byte payload
// (version byte + 20-byte account), verifying the 4-byte double-sha256
// checksum.
func DecodeTronAddress(addr string) ([]byte, error) {
	raw, err := base58.Decode(addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidAddress, addr)
	}
	if len(raw) != 25 {
		return nil, fmt.Errorf("%w: unexpected length %d", ErrInvalidAddress, len(raw))
	}
	payload, checksum := raw[:21], raw[21:]
	first := sha256.Sum256(payload)
	second := sha256.Sum256(first[:])
	for i := 0; i < 4; i++ {
		if checksum[i] != second[i] {
			return nil, fmt.Errorf("%w: checksum mismatch", ErrInvalidAddress)
		}
	}
	if payload[0] != tronAddressPrefix {
		return nil, fmt.Errorf("%w: unexpected version byte %#x", ErrInvalidAddress, payload[0])
	}
	return payload, nil
}

// EncodeTronAddress encodes a 21-byte payload back to base58check.
func EncodeTronAddress(payload []byte) (string, error) {
	if len(payload) != 21 {
		return "", fmt.Errorf("%w: payload must be 21 bytes", ErrInvalidAddress)
	}
	first := sha256.Sum256(payload)
	second := sha256.Sum256(first[:])
	return base58.Encode(append(append([]byte{}, payload...), second[:4]...)), nil
}

// TronAddressToHex converts a base58check address to the lowercase raw hex
// form (42 chars, 0x41 prefix included) used when comparing against log data.
func TronAddressToHex(addr string) (string, error) {
	payload, err := DecodeTronAddress(addr)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(payload), nil
}

// TronAddressFromHex converts a raw hex payload (with or without the 0x41
// version byte, with or without a 0x prefix) back to base58check form.
func TronAddressFromHex(h string) (string, error) {
	h = strings.TrimPrefix(strings.ToLower(h), "0x")
	if len(h) == 40 {
		h = "41" + h
	}
	if len(h) != 42 {
		return "", fmt.Errorf("%w: unexpected hex length %d", ErrInvalidAddress, len(h))
	}
	payload, err := hex.DecodeString(h)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	return EncodeTronAddress(payload)
}

// IsHexAddress reports whether a is a 0x-prefixed 20-byte hex address.
func IsHexAddress(a string) bool {
	if !strings.HasPrefix(a, "0x") && !strings.HasPrefix(a, "0X") {
		return false
	}
	body := a[2:]
	if len(body) != 40 {
		return false
	}
	_, err := hex.DecodeString(body)
	return err == nil
}

// normalizeHexAddress reduces any hex address form to its lowercase 40-char
// account part, dropping 0x prefixes and tron version bytes.
func normalizeHexAddress(a string) string {
	a = strings.TrimPrefix(strings.ToLower(a), "0x")
	if len(a) == 42 && strings.HasPrefix(a, "41") {
		a = a[2:]
	}
	return a
}

// topicToAddressHex extracts the 20-byte address from a zero-padded 32-byte
// log topic. Comparison happens lowercase.
func topicToAddressHex(topic string) (string, error) {
	t := strings.TrimPrefix(strings.ToLower(topic), "0x")
	if len(t) != 64 {
		return "", fmt.Errorf("unexpected topic length %d", len(t))
	}
	return t[24:], nil
}

// addressToTopic left-pads a 40-char hex address to the 32-byte topic form.
func addressToTopic(hex40 string) string {
	return "0x" + strings.Repeat("0", 24) + strings.ToLower(strings.TrimPrefix(hex40, "0x"))
}

// parseHexAmount converts a 0x hex quantity into asset units.
func parseHexAmount(h string, decimals uint8) (float64, error) {
	h = strings.TrimPrefix(h, "0x")
	if h == "" {
		return 0, nil
	}
	v, ok := new(big.Int).SetString(h, 16)
	if !ok {
		return 0, fmt.Errorf("invalid hex quantity %q", h)
	}
	return rawToFloat(v, decimals), nil
}

// rawToFloat divides a raw integer amount by 10^decimals.
func rawToFloat(v *big.Int, decimals uint8) float64 {
	scale := new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil))
	out, _ := new(big.Float).Quo(new(big.Float).SetInt(v), scale).Float64()
	return out
}

// floatToRaw converts asset units into the raw integer form, truncating any
// sub-unit remainder.
func floatToRaw(amount float64, decimals uint8) *big.Int {
	scale := new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil))
	raw, _ := new(big.Float).Mul(big.NewFloat(amount), scale).Int(nil)
	return raw
}

// hexQuantity renders a raw integer as a 0x hex quantity.
func hexQuantity(v *big.Int) string {
	return "0x" + v.Text(16)
}
