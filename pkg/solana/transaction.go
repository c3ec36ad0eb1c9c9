package solana

import (
	"bytes"
	"crypto/ed25519"
	"crypto/sha256"
	"fmt"
	"math"
	"strings"

	"github.com/mr-tron/base58/base58"
	"github.com/pkg/errors"
)

const (
	// MaxTransactionSize taken from: https://github.com/solana-labs/solana/blob/39b3ac6a8d29e14faa1de73d8b46d390ad41797b/sdk/src/packet.rs#L9-L13
	MaxTransactionSize = 1232

	maxAccounts = math.MaxUint8 + 1
)

var (
	ErrMissingBlockhash        = errors.New("missing recent blockhash")
	ErrUnknownAccountReference = errors.New("unknown account reference")
	ErrIncompleteSignatures    = errors.New("incomplete signatures")
	ErrNotASigner              = errors.New("account is not a required signer")
	ErrTooManyAccounts         = errors.New("too many accounts")
	ErrTransactionTooLarge     = errors.New("transaction too large")
)

type Signature [ed25519.SignatureSize]byte
type Blockhash [sha256.Size]byte

// UnsignedMessage is the logical form of a transaction message, before the
// account table is laid out.
type UnsignedMessage struct {
	FeePayer        ed25519.PublicKey
	RecentBlockhash Blockhash
	Instructions    []Instruction
}

func NewMessage(feePayer ed25519.PublicKey) *UnsignedMessage {
	return &UnsignedMessage{
		FeePayer: feePayer,
	}
}

func (m *UnsignedMessage) AddInstruction(instructions ...Instruction) *UnsignedMessage {
	m.Instructions = append(m.Instructions, instructions...)
	return m
}

func (m *UnsignedMessage) SetBlockhash(bh Blockhash) *UnsignedMessage {
	m.RecentBlockhash = bh
	return m
}

type Header struct {
	NumSignatures     byte
	NumReadonlySigned byte
	NumReadOnly       byte
}

// Message is a compiled message, where instructions reference accounts by
// their index into Accounts.
type Message struct {
	Header          Header
	Accounts        []ed25519.PublicKey
	RecentBlockhash Blockhash
	Instructions    []CompiledInstruction
}

type Transaction struct {
	Signatures []Signature
	Message    Message
}

// Compile lays out the canonical account table and resolves every instruction
// against it.
//
// The table is built from the fee payer, each instruction's accounts in their
// declared order, and finally the instruction programs. Duplicates are merged
// at their first position, then the table is stably partitioned into
// signer-writable, signer-readonly, writable and readonly accounts.
func (m *UnsignedMessage) Compile() (Message, error) {
	if m.RecentBlockhash.IsZero() {
		return Message{}, ErrMissingBlockhash
	}

	var refs []AccountMeta
	if len(m.FeePayer) > 0 {
		refs = append(refs, NewAccountMeta(m.FeePayer, true))
	}
	for _, ixn := range m.Instructions {
		refs = append(refs, ixn.Accounts...)
	}
	for _, ixn := range m.Instructions {
		refs = append(refs, NewReadonlyAccountMeta(ixn.Program, false))
	}

	for _, ref := range refs {
		if len(ref.PublicKey) != ed25519.PublicKeySize {
			return Message{}, errors.Wrapf(ErrInvalidAddressEncoding, "account reference of %d bytes", len(ref.PublicKey))
		}
	}

	accounts := partitionAccountMetas(mergeAccountMetas(refs))
	if len(accounts) > maxAccounts {
		return Message{}, errors.Wrapf(ErrTooManyAccounts, "%d accounts", len(accounts))
	}

	var compiled Message
	compiled.RecentBlockhash = m.RecentBlockhash
	for _, account := range accounts {
		compiled.Accounts = append(compiled.Accounts, account.PublicKey)

		switch account.group() {
		case groupSignerWritable:
			compiled.Header.NumSignatures++
		case groupSignerReadonly:
			compiled.Header.NumSignatures++
			compiled.Header.NumReadonlySigned++
		case groupReadonly:
			compiled.Header.NumReadOnly++
		}
	}

	for i, ixn := range m.Instructions {
		programIndex := indexOf(compiled.Accounts, ixn.Program)
		if programIndex < 0 {
			return Message{}, errors.Wrapf(ErrUnknownAccountReference, "instruction %d program %s", i, base58.Encode(ixn.Program))
		}

		c := CompiledInstruction{
			ProgramIndex: byte(programIndex),
			Accounts:     make([]byte, 0, len(ixn.Accounts)),
			Data:         ixn.Data,
		}

		for _, a := range ixn.Accounts {
			accountIndex := indexOf(compiled.Accounts, a.PublicKey)
			if accountIndex < 0 {
				return Message{}, errors.Wrapf(ErrUnknownAccountReference, "instruction %d account %s", i, base58.Encode(a.PublicKey))
			}
			c.Accounts = append(c.Accounts, byte(accountIndex))
		}

		compiled.Instructions = append(compiled.Instructions, c)
	}

	return compiled, nil
}

// Decompile recovers the logical message. Account flags are those of the
// canonical table, so recompiling yields an identical message.
func (m Message) Decompile() (*UnsignedMessage, error) {
	if err := m.validateHeader(); err != nil {
		return nil, err
	}

	decompiled := &UnsignedMessage{
		RecentBlockhash: m.RecentBlockhash,
	}
	if m.Header.NumSignatures > 0 {
		decompiled.FeePayer = m.Accounts[0]
	}

	for i, c := range m.Instructions {
		if int(c.ProgramIndex) >= len(m.Accounts) {
			return nil, errors.Wrapf(ErrUnknownAccountReference, "instruction %d program index %d", i, c.ProgramIndex)
		}

		ixn := Instruction{
			Program: m.Accounts[c.ProgramIndex],
			Data:    c.Data,
		}
		for _, index := range c.Accounts {
			if int(index) >= len(m.Accounts) {
				return nil, errors.Wrapf(ErrUnknownAccountReference, "instruction %d account index %d", i, index)
			}
			ixn.Accounts = append(ixn.Accounts, AccountMeta{
				PublicKey:  m.Accounts[index],
				IsSigner:   m.IsSigner(int(index)),
				IsWritable: m.IsWritable(int(index)),
			})
		}
		decompiled.Instructions = append(decompiled.Instructions, ixn)
	}

	return decompiled, nil
}

func (m Message) IsSigner(index int) bool {
	return index < int(m.Header.NumSignatures)
}

func (m Message) IsWritable(index int) bool {
	if m.IsSigner(index) {
		return index < int(m.Header.NumSignatures)-int(m.Header.NumReadonlySigned)
	}
	return index < len(m.Accounts)-int(m.Header.NumReadOnly)
}

func (m Message) validateHeader() error {
	if int(m.Header.NumSignatures) > len(m.Accounts) {
		return errors.Errorf("header declares %d signatures for %d accounts", m.Header.NumSignatures, len(m.Accounts))
	}
	if m.Header.NumReadonlySigned > m.Header.NumSignatures {
		return errors.Errorf("header declares %d readonly signers of %d", m.Header.NumReadonlySigned, m.Header.NumSignatures)
	}
	if int(m.Header.NumReadOnly) > len(m.Accounts)-int(m.Header.NumSignatures) {
		return errors.Errorf("header declares %d readonly accounts of %d unsigned", m.Header.NumReadOnly, len(m.Accounts)-int(m.Header.NumSignatures))
	}
	return nil
}

// NewTransaction compiles msg into a transaction with one empty signature
// slot per required signer.
func NewTransaction(msg *UnsignedMessage) (Transaction, error) {
	compiled, err := msg.Compile()
	if err != nil {
		return Transaction{}, err
	}

	return Transaction{
		Signatures: make([]Signature, compiled.Header.NumSignatures),
		Message:    compiled,
	}, nil
}

// Signature returns the first signature, which identifies the transaction.
func (t *Transaction) Signature() Signature {
	if len(t.Signatures) == 0 {
		return Signature{}
	}
	return t.Signatures[0]
}

// SetBlockhash replaces the recent blockhash. Any existing signatures are
// cleared, since they no longer cover the message.
func (t *Transaction) SetBlockhash(bh Blockhash) {
	t.Message.RecentBlockhash = bh
	for i := range t.Signatures {
		t.Signatures[i] = Signature{}
	}
}

// Sign signs the serialized message with each signer, storing the signature
// in the slot matching the signer's account index.
func (t *Transaction) Sign(signers ...KeyPair) error {
	if t.Message.RecentBlockhash.IsZero() {
		return ErrMissingBlockhash
	}
	if err := t.Message.validateHeader(); err != nil {
		return err
	}
	if len(t.Signatures) != int(t.Message.Header.NumSignatures) {
		return errors.Wrapf(ErrIncompleteSignatures, "%d signature slots for %d signers", len(t.Signatures), t.Message.Header.NumSignatures)
	}

	messageBytes := t.Message.Marshal()

	for _, s := range signers {
		pub := s.PublicKey()
		index := indexOf(t.Message.Accounts[:t.Message.Header.NumSignatures], pub)
		if index < 0 {
			return errors.Wrapf(ErrNotASigner, "%s", base58.Encode(pub))
		}

		t.Signatures[index] = s.Sign(messageBytes)
	}

	return nil
}

// VerifySignatures reports whether every signature slot holds a valid
// signature from its account over the message.
func (t *Transaction) VerifySignatures() bool {
	if len(t.Signatures) != int(t.Message.Header.NumSignatures) {
		return false
	}

	messageBytes := t.Message.Marshal()
	for i, sig := range t.Signatures {
		if !Verify(messageBytes, sig[:], t.Message.Accounts[i]) {
			return false
		}
	}
	return true
}

func (t *Transaction) String() string {
	var sb strings.Builder
	sb.WriteString("Signatures:\n")
	for i, s := range t.Signatures {
		sb.WriteString(fmt.Sprintf("  %d: %s\n", i, s.String()))
	}
	sb.WriteString("Message:\n")
	sb.WriteString("  Header:\n")
	sb.WriteString(fmt.Sprintf("    NumSignatures: %d\n", t.Message.Header.NumSignatures))
	sb.WriteString(fmt.Sprintf("    NumReadonlySigned: %d\n", t.Message.Header.NumReadonlySigned))
	sb.WriteString(fmt.Sprintf("    NumReadOnly: %d\n", t.Message.Header.NumReadOnly))
	sb.WriteString(fmt.Sprintf("  RecentBlockhash: %s\n", t.Message.RecentBlockhash.String()))
	sb.WriteString("  Accounts:\n")
	for i, a := range t.Message.Accounts {
		sb.WriteString(fmt.Sprintf("    %d: %s (signer=%t, writable=%t)\n", i, base58.Encode(a), t.Message.IsSigner(i), t.Message.IsWritable(i)))
	}
	sb.WriteString("  Instructions:\n")
	for i := range t.Message.Instructions {
		sb.WriteString(fmt.Sprintf("    %d:\n", i))
		sb.WriteString(fmt.Sprintf("      ProgramIndex: %d\n", t.Message.Instructions[i].ProgramIndex))
		sb.WriteString(fmt.Sprintf("      Accounts: %v\n", t.Message.Instructions[i].Accounts))
		sb.WriteString(fmt.Sprintf("      Data: %v\n", t.Message.Instructions[i].Data))
	}
	return sb.String()
}

func indexOf(slice []ed25519.PublicKey, item ed25519.PublicKey) int {
	for i, val := range slice {
		if bytes.Equal(val, item) {
			return i
		}
	}

	return -1
}
