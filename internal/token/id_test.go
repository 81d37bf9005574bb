package token

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestIDEVMAddressRoundTrip(t *testing.T) {
	id := MustParseID("0.0.1456986")
	addr := id.EVMAddress()

	want := common.HexToAddress("0x0000000000000000000000000000000000163b5a")
	if addr != want {
		t.Fatalf("address mismatch: %s != %s", addr.Hex(), want.Hex())
	}

	back, ok := IDFromEVMAddress(addr)
	if !ok {
		t.Fatalf("expected long-zero address")
	}
	if back != id {
		t.Fatalf("id mismatch: %s != %s", back, id)
	}
}

func TestIDShardRealmEncoding(t *testing.T) {
	id := ID{Shard: 1, Realm: 2, Num: 3}
	addr := id.EVMAddress()
	want := common.HexToAddress("0x0000000100000000000000020000000000000003")
	if addr != want {
		t.Fatalf("address mismatch: %s", addr.Hex())
	}
}

func TestParseIDInvalid(t *testing.T) {
	for _, input := range []string{"", "0.0", "a.b.c", "0.0.-1", "0.0.1.2"} {
		if _, err := ParseID(input); err == nil {
			t.Fatalf("expected error for %q", input)
		}
	}
}

func TestIDFromEVMAddressRejectsAlias(t *testing.T) {
	alias := common.HexToAddress("0x2222222222222222222222222222222222222222")
	if _, ok := IDFromEVMAddress(alias); ok {
		t.Fatalf("alias address must not decode to an entity id")
	}
}

func TestAddressFor(t *testing.T) {
	addr, err := AddressFor("0.0.1234")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if addr != MustParseID("0.0.1234").EVMAddress() {
		t.Fatalf("address mismatch: %s", addr.Hex())
	}

	hexAddr := "0x3333333333333333333333333333333333333333"
	addr, err = AddressFor(hexAddr)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if addr != common.HexToAddress(hexAddr) {
		t.Fatalf("address mismatch: %s", addr.Hex())
	}
}
