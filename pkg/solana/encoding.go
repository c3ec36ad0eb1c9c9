package solana

import (
	"bytes"
	"crypto/ed25519"
	"encoding/base64"
	"io"

	"github.com/pkg/errors"

	"github.com/code-payments/copy-trader/pkg/solana/shortvec"
)

var (
	ErrUnsupportedMessageVersion = errors.New("unsupported message version")
)

// Marshal serializes the transaction into its wire format. Every signature
// slot must be filled.
func (t Transaction) Marshal() ([]byte, error) {
	if t.Message.RecentBlockhash.IsZero() {
		return nil, ErrMissingBlockhash
	}
	if len(t.Signatures) != int(t.Message.Header.NumSignatures) {
		return nil, errors.Wrapf(ErrIncompleteSignatures, "%d signature slots for %d signers", len(t.Signatures), t.Message.Header.NumSignatures)
	}
	for i, s := range t.Signatures {
		if s.IsZero() {
			return nil, errors.Wrapf(ErrIncompleteSignatures, "missing signature for %s", AddressToText(t.Message.Accounts[i]))
		}
	}

	b := bytes.NewBuffer(nil)

	// Signatures
	if _, err := shortvec.EncodeLen(b, len(t.Signatures)); err != nil {
		return nil, err
	}
	for _, s := range t.Signatures {
		_, _ = b.Write(s[:])
	}

	// Message
	_, _ = b.Write(t.Message.Marshal())

	if b.Len() > MaxTransactionSize {
		return nil, errors.Wrapf(ErrTransactionTooLarge, "%d bytes", b.Len())
	}

	return b.Bytes(), nil
}

func (t *Transaction) Unmarshal(b []byte) error {
	buf := bytes.NewBuffer(b)

	sigLen, err := shortvec.DecodeLen(buf)
	if err != nil {
		return errors.Wrap(err, "failed to read signature length")
	}

	t.Signatures = make([]Signature, sigLen)
	for i := 0; i < sigLen; i++ {
		if _, err = io.ReadFull(buf, t.Signatures[i][:]); err != nil {
			return errors.Wrapf(err, "failed to read signature at %d", i)
		}
	}

	if err := (&t.Message).Unmarshal(buf.Bytes()); err != nil {
		return err
	}

	if sigLen != int(t.Message.Header.NumSignatures) {
		return errors.Errorf("signature count %d does not match header %d", sigLen, t.Message.Header.NumSignatures)
	}
	return nil
}

// Marshal serializes the message. These are the bytes covered by signatures.
func (m Message) Marshal() []byte {
	b := bytes.NewBuffer(nil)

	// Header
	_ = b.WriteByte(m.Header.NumSignatures)
	_ = b.WriteByte(m.Header.NumReadonlySigned)
	_ = b.WriteByte(m.Header.NumReadOnly)

	// Accounts
	_, _ = shortvec.EncodeLen(b, len(m.Accounts))
	for _, a := range m.Accounts {
		_, _ = b.Write(a)
	}

	// Recent Blockhash
	_, _ = b.Write(m.RecentBlockhash[:])

	// Instructions
	_, _ = shortvec.EncodeLen(b, len(m.Instructions))
	for _, i := range m.Instructions {
		_ = b.WriteByte(i.ProgramIndex)

		// Accounts
		_, _ = shortvec.EncodeLen(b, len(i.Accounts))
		_, _ = b.Write(i.Accounts)

		// Data
		_, _ = shortvec.EncodeLen(b, len(i.Data))
		_, _ = b.Write(i.Data)
	}

	return b.Bytes()
}

func (m *Message) Unmarshal(b []byte) (err error) {
	if len(b) == 0 {
		return errors.New("empty message")
	}
	if b[0]&0x80 != 0 {
		return errors.Wrapf(ErrUnsupportedMessageVersion, "v%d", b[0]&0x7f)
	}

	buf := bytes.NewBuffer(b)

	// Header
	if m.Header.NumSignatures, err = buf.ReadByte(); err != nil {
		return errors.Wrap(err, "failed to read num signatures")
	}
	if m.Header.NumReadonlySigned, err = buf.ReadByte(); err != nil {
		return errors.Wrap(err, "failed to read num readonly signatures")
	}
	if m.Header.NumReadOnly, err = buf.ReadByte(); err != nil {
		return errors.Wrap(err, "failed to read num readonly")
	}

	// Accounts
	accountLen, err := shortvec.DecodeLen(buf)
	if err != nil {
		return errors.Wrap(err, "failed to read account len")
	}
	m.Accounts = make([]ed25519.PublicKey, accountLen)
	for i := 0; i < accountLen; i++ {
		m.Accounts[i] = make([]byte, ed25519.PublicKeySize)
		if _, err = io.ReadFull(buf, m.Accounts[i]); err != nil {
			return errors.Wrapf(err, "failed to read account at index %d", i)
		}
	}

	if err := m.validateHeader(); err != nil {
		return err
	}

	// Recent block hash
	if _, err = io.ReadFull(buf, m.RecentBlockhash[:]); err != nil {
		return errors.Wrap(err, "failed to read recent block hash")
	}

	// Instructions
	instructionLen, err := shortvec.DecodeLen(buf)
	if err != nil {
		return errors.Wrap(err, "failed to read instruction len")
	}
	m.Instructions = make([]CompiledInstruction, instructionLen)
	for i := 0; i < instructionLen; i++ {
		var c CompiledInstruction

		// Program Index
		if c.ProgramIndex, err = buf.ReadByte(); err != nil {
			return errors.Wrapf(err, "failed to read instruction[%d] program index", i)
		}
		if int(c.ProgramIndex) >= len(m.Accounts) {
			return errors.Wrapf(ErrUnknownAccountReference, "instruction[%d] program index %d", i, c.ProgramIndex)
		}

		// Account Indexes
		accountLen, err = shortvec.DecodeLen(buf)
		if err != nil {
			return errors.Wrapf(err, "failed to read instruction[%d] account len", i)
		}
		c.Accounts = make([]byte, accountLen)
		if _, err = io.ReadFull(buf, c.Accounts); err != nil {
			return errors.Wrapf(err, "failed to read instruction[%d] accounts", i)
		}

		for _, index := range c.Accounts {
			if int(index) >= len(m.Accounts) {
				return errors.Wrapf(ErrUnknownAccountReference, "instruction[%d] account index %d", i, index)
			}
		}

		// Data
		dataLen, err := shortvec.DecodeLen(buf)
		if err != nil {
			return errors.Wrapf(err, "failed to read instruction[%d] data len", i)
		}
		c.Data = make([]byte, dataLen)
		if _, err = io.ReadFull(buf, c.Data); err != nil {
			return errors.Wrapf(err, "failed to read instruction[%d] data", i)
		}

		m.Instructions[i] = c
	}

	if buf.Len() > 0 {
		return errors.Errorf("%d trailing bytes after message", buf.Len())
	}

	return nil
}

// SignAndSerialize compiles msg, signs it with every signer and returns the
// base64 wire encoding accepted by sendTransaction.
func SignAndSerialize(msg *UnsignedMessage, signers ...KeyPair) (string, error) {
	txn, err := NewTransaction(msg)
	if err != nil {
		return "", errors.Wrap(err, "failed to compile message")
	}

	if err := txn.Sign(signers...); err != nil {
		return "", errors.Wrap(err, "failed to sign transaction")
	}

	raw, err := txn.Marshal()
	if err != nil {
		return "", err
	}

	return base64.StdEncoding.EncodeToString(raw), nil
}

// DecodeTransaction parses the base64 wire encoding of a transaction.
func DecodeTransaction(encoded string) (Transaction, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return Transaction{}, errors.Wrap(err, "invalid base64 transaction")
	}

	var txn Transaction
	if err := txn.Unmarshal(raw); err != nil {
		return Transaction{}, err
	}
	return txn, nil
}
