package form

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

var ErrEncoding = errors.New("malformed form content")

// Wire tags. Every structural member carries an explicit tag so that no two
// semantically different contents can collide under length extension.
const (
	tagTitle byte = iota + 1
	tagDescription
	tagUnixTime
	tagQuestions
	tagSettings
	tagOwner
	tagStatus
	tagAppID

	tagQuestionLabel
	tagQuestionType
	tagQuestionRequired
	tagQuestionOptions
	tagQuestionOther

	tagGate
	tagGateMerkleRoot
	tagGateAllowedAddresses
	tagEncryptionPubKey
	tagRespondentCriteria
)

// Encode produces the canonical byte encoding of a form's content. It is a
// pure function: field-wise equal contents encode to identical bytes on any
// machine.
func Encode(c Content) ([]byte, error) {
	if err := Validate(c); err != nil {
		return nil, err
	}
	var b bytes.Buffer
	writeString(&b, tagTitle, c.Title)
	writeString(&b, tagDescription, c.Description)
	writeUint64(&b, tagUnixTime, uint64(c.UnixTime))

	b.WriteByte(tagQuestions)
	writeUvarint(&b, uint64(len(c.Questions)))
	for _, q := range c.Questions {
		writeString(&b, tagQuestionLabel, q.Label)
		writeString(&b, tagQuestionType, q.Type)
		writeBool(&b, tagQuestionRequired, q.Required)
		b.WriteByte(tagQuestionOptions)
		writeUvarint(&b, uint64(len(q.Options)))
		for _, opt := range q.Options {
			writeUvarint(&b, uint64(len(opt)))
			b.WriteString(opt)
		}
		writeBool(&b, tagQuestionOther, q.Other)
	}

	b.WriteByte(tagSettings)
	writeBool(&b, tagGate, c.Settings.Gate != nil)
	if g := c.Settings.Gate; g != nil {
		writeString(&b, tagGateMerkleRoot, g.MerkleRoot)
		b.WriteByte(tagGateAllowedAddresses)
		writeUvarint(&b, uint64(len(g.AllowedAddresses)))
		for _, a := range g.AllowedAddresses {
			writeUvarint(&b, uint64(len(a)))
			b.WriteString(a)
		}
	}
	writeString(&b, tagEncryptionPubKey, c.Settings.EncryptionPubKey)
	writeString(&b, tagRespondentCriteria, c.Settings.RespondentCriteria)

	writeString(&b, tagOwner, c.Owner)
	writeString(&b, tagStatus, c.Status)
	writeString(&b, tagAppID, c.AppID)
	return b.Bytes(), nil
}

// Validate checks the structural invariants required before encoding,
// signing or hashing.
func Validate(c Content) error {
	if c.UnixTime < 0 {
		return fmt.Errorf("%w: negative timestamp %d", ErrEncoding, c.UnixTime)
	}
	if len(c.Questions) == 0 {
		return fmt.Errorf("%w: form has no questions", ErrEncoding)
	}
	for i, q := range c.Questions {
		if err := validateQuestion(q); err != nil {
			return fmt.Errorf("%w: question %d: %v", ErrEncoding, i, err)
		}
	}
	if _, err := NormalizeAddress(c.Owner); err != nil {
		return fmt.Errorf("%w: owner: %v", ErrEncoding, err)
	}
	return nil
}

func validateQuestion(q Question) error {
	switch q.Type {
	case QuestionTypeText:
		if len(q.Options) > 0 {
			return errors.New("text question carries options")
		}
	case QuestionTypeSelect, QuestionTypeCheckbox:
		if len(q.Options) == 0 {
			return fmt.Errorf("%s question has no options", q.Type)
		}
	default:
		return fmt.Errorf("unknown question type %q", q.Type)
	}
	return nil
}

func writeString(b *bytes.Buffer, tag byte, s string) {
	b.WriteByte(tag)
	writeUvarint(b, uint64(len(s)))
	b.WriteString(s)
}

func writeUint64(b *bytes.Buffer, tag byte, v uint64) {
	b.WriteByte(tag)
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	b.Write(buf[:])
}

func writeBool(b *bytes.Buffer, tag byte, v bool) {
	b.WriteByte(tag)
	if v {
		b.WriteByte(1)
	} else {
		b.WriteByte(0)
	}
}

func writeUvarint(b *bytes.Buffer, v uint64) {
	var buf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(buf[:], v)
	b.Write(buf[:n])
}
