package amm

import (
	"bytes"
	"crypto/ed25519"
	"fmt"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"

	"github.com/code-payments/copy-trader/pkg/solana/binary"
)

// PoolLayout describes where the pool fields live inside a pool account for
// one version of the program. Offsets are in bytes from the start of the
// account data, which begins with an 8 byte discriminator whose first byte is
// the account type and second byte the layout version.
type PoolLayout struct {
	Version uint8
	Size    int

	Mint                int
	RealSolReserve      int
	RealTokenReserve    int
	VirtualSolReserve   int
	VirtualTokenReserve int
}

func (l PoolLayout) Discriminator() []byte {
	return []byte{byte(AccountTypePool), l.Version, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}
}

var PoolLayoutV1 = PoolLayout{
	Version: 1,
	Size: (8 + // discriminator
		32 + // mint
		8 + // real_sol_reserve
		8 + // real_token_reserve
		8 + // virtual_sol_reserve
		8), // virtual_token_reserve

	Mint:                8,
	RealSolReserve:      40,
	RealTokenReserve:    48,
	VirtualSolReserve:   56,
	VirtualTokenReserve: 64,
}

var poolLayouts = map[uint8]PoolLayout{
	PoolLayoutV1.Version: PoolLayoutV1,
}

// PoolState is a snapshot of a pool's reserves at the slot it was read.
type PoolState struct {
	Version             uint8
	TokenMint           ed25519.PublicKey
	RealSolReserve      uint64
	RealTokenReserve    uint64
	VirtualSolReserve   uint64
	VirtualTokenReserve uint64
}

// Unmarshal decodes a pool account using the layout named by its
// discriminator.
func (obj *PoolState) Unmarshal(data []byte) error {
	if len(data) < binary.DiscriminatorSize {
		return errors.Wrapf(ErrMalformedPoolAccount, "%d bytes", len(data))
	}

	if data[0] != byte(AccountTypePool) {
		return errors.Wrapf(ErrMalformedPoolAccount, "account type %d", data[0])
	}

	layout, ok := poolLayouts[data[1]]
	if !ok {
		return errors.Wrapf(ErrMalformedPoolAccount, "unknown layout version %d", data[1])
	}

	return obj.unmarshalWithLayout(data, layout)
}

func (obj *PoolState) unmarshalWithLayout(data []byte, layout PoolLayout) error {
	if len(data) < layout.Size {
		return errors.Wrapf(ErrMalformedPoolAccount, "%d bytes, expected at least %d", len(data), layout.Size)
	}

	var discriminator []byte
	var offset int
	binary.GetDiscriminator(data, &discriminator, &offset)
	if !bytes.Equal(discriminator, layout.Discriminator()) {
		return errors.Wrap(ErrMalformedPoolAccount, "discriminator mismatch")
	}

	obj.Version = layout.Version

	offset = layout.Mint
	binary.GetKey32(data, &obj.TokenMint, &offset)
	offset = layout.RealSolReserve
	binary.GetUint64(data, &obj.RealSolReserve, &offset)
	offset = layout.RealTokenReserve
	binary.GetUint64(data, &obj.RealTokenReserve, &offset)
	offset = layout.VirtualSolReserve
	binary.GetUint64(data, &obj.VirtualSolReserve, &offset)
	offset = layout.VirtualTokenReserve
	binary.GetUint64(data, &obj.VirtualTokenReserve, &offset)

	return nil
}

// Marshal encodes the pool with the layout for its version, defaulting to
// the latest.
func (obj *PoolState) Marshal() []byte {
	layout, ok := poolLayouts[obj.Version]
	if !ok {
		layout = PoolLayoutV1
	}

	data := make([]byte, layout.Size)

	var offset int
	binary.PutDiscriminator(data, layout.Discriminator(), &offset)

	offset = layout.Mint
	binary.PutKey32(data, obj.TokenMint, &offset)
	offset = layout.RealSolReserve
	binary.PutUint64(data, obj.RealSolReserve, &offset)
	offset = layout.RealTokenReserve
	binary.PutUint64(data, obj.RealTokenReserve, &offset)
	offset = layout.VirtualSolReserve
	binary.PutUint64(data, obj.VirtualSolReserve, &offset)
	offset = layout.VirtualTokenReserve
	binary.PutUint64(data, obj.VirtualTokenReserve, &offset)

	return data
}

func (obj *PoolState) String() string {
	return fmt.Sprintf(
		"Pool{version=%d,mint=%s,real_sol_reserve=%d,real_token_reserve=%d,virtual_sol_reserve=%d,virtual_token_reserve=%d}",
		obj.Version,
		base58.Encode(obj.TokenMint),
		obj.RealSolReserve,
		obj.RealTokenReserve,
		obj.VirtualSolReserve,
		obj.VirtualTokenReserve,
	)
}
