package token

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ID is a ledger-native entity id in shard.realm.num form.
type ID struct {
	Shard uint32
	Realm uint64
	Num   uint64
}

// ParseID parses "shard.realm.num".
func ParseID(input string) (ID, error) {
	parts := strings.Split(strings.TrimSpace(input), ".")
	if len(parts) != 3 {
		return ID{}, fmt.Errorf("invalid entity id: %q", input)
	}
	shard, err := strconv.ParseUint(parts[0], 10, 32)
	if err != nil {
		return ID{}, fmt.Errorf("invalid shard in %q: %w", input, err)
	}
	realm, err := strconv.ParseUint(parts[1], 10, 64)
	if err != nil {
		return ID{}, fmt.Errorf("invalid realm in %q: %w", input, err)
	}
	num, err := strconv.ParseUint(parts[2], 10, 64)
	if err != nil {
		return ID{}, fmt.Errorf("invalid num in %q: %w", input, err)
	}
	return ID{Shard: uint32(shard), Realm: realm, Num: num}, nil
}

// MustParseID is ParseID for package-level tables.
func MustParseID(input string) ID {
	id, err := ParseID(input)
	if err != nil {
		panic(err)
	}
	return id
}

func (id ID) String() string {
	return fmt.Sprintf("%d.%d.%d", id.Shard, id.Realm, id.Num)
}

// EVMAddress returns the long-zero execution address: 4-byte shard, 8-byte realm, 8-byte num.
func (id ID) EVMAddress() common.Address {
	var addr common.Address
	binary.BigEndian.PutUint32(addr[0:4], id.Shard)
	binary.BigEndian.PutUint64(addr[4:12], id.Realm)
	binary.BigEndian.PutUint64(addr[12:20], id.Num)
	return addr
}

// IDFromEVMAddress reverses EVMAddress. It only accepts long-zero addresses.
func IDFromEVMAddress(addr common.Address) (ID, bool) {
	if !IsLongZero(addr) {
		return ID{}, false
	}
	return ID{
		Shard: binary.BigEndian.Uint32(addr[0:4]),
		Realm: binary.BigEndian.Uint64(addr[4:12]),
		Num:   binary.BigEndian.Uint64(addr[12:20]),
	}, true
}

// IsLongZero reports whether addr encodes an entity id rather than an ECDSA alias.
// Shards and realms in use are small, so the top bytes of the realm are zero.
func IsLongZero(addr common.Address) bool {
	for _, b := range addr[0:8] {
		if b != 0 {
			return false
		}
	}
	return addr != (common.Address{})
}

// AddressFor resolves an account or contract reference that may be an entity id or a hex address.
func AddressFor(input string) (common.Address, error) {
	input = strings.TrimSpace(input)
	if common.IsHexAddress(input) {
		return common.HexToAddress(input), nil
	}
	id, err := ParseID(input)
	if err != nil {
		return common.Address{}, err
	}
	return id.EVMAddress(), nil
}
