package crypto

import (
	"strings"
	"testing"
)

func TestAddressRoundTrip(t *testing.T) {
	key, err := GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	addr := key.PubKey().Address()
	encoded := addr.String()
	if !strings.HasPrefix(encoded, string(CHPrefix)) {
		t.Fatalf("encoded address %q missing prefix", encoded)
	}

	decoded, err := DecodeAddress(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if string(decoded.Bytes()) != string(addr.Bytes()) {
		t.Fatalf("round trip mismatch")
	}
	if decoded.Prefix() != CHPrefix {
		t.Fatalf("prefix = %q", decoded.Prefix())
	}
}

func TestEncodeAddressMatchesDecode(t *testing.T) {
	var raw [20]byte
	for i := range raw {
		raw[i] = byte(i)
	}
	encoded := EncodeAddress(raw)
	decoded, err := DecodeAddress(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if string(decoded.Bytes()) != string(raw[:]) {
		t.Fatalf("payload mismatch")
	}
}

func TestDecodeAddressRejectsGarbage(t *testing.T) {
	cases := []string{
		"",
		"not-bech32",
		"ch1qqqq",                 // truncated payload
		"xx1invalidprefixaddr000", // wrong prefix
	}
	for _, input := range cases {
		if _, err := DecodeAddress(input); err == nil {
			t.Fatalf("decode %q: expected error", input)
		}
	}
}

func TestNewAddressPanicsOnBadLength(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()
	NewAddress(CHPrefix, []byte{0x01})
}
