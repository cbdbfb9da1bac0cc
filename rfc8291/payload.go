package rfc8291

import (
	"encoding/binary"
	"errors"
)

// salt(16) || rs(4) || idlen(1)
const BASE_HEADER_LEN = SALT_LEN + 4 + 1

var ErrShortHeader = errors.New("data is too short")

// Payload is an aes128gcm message: the RFC8188 header followed by a single record.
type Payload struct {
	RS         uint32
	Salt       []byte
	KeyId      []byte
	CipherText []byte
}

func Marshal(p Payload) []byte {
	data := make([]byte, 0, BASE_HEADER_LEN+len(p.KeyId)+len(p.CipherText))
	data = append(data, p.Salt...)
	data = binary.BigEndian.AppendUint32(data, p.RS)
	data = append(data, uint8(len(p.KeyId)))
	data = append(data, p.KeyId...)
	return append(data, p.CipherText...)
}

func Unmarshal(data []byte) (p Payload, err error) {
	if len(data) < BASE_HEADER_LEN {
		return p, ErrShortHeader
	}

	idlen := int(data[BASE_HEADER_LEN-1])
	if len(data) < BASE_HEADER_LEN+idlen {
		return p, ErrShortHeader
	}

	p.Salt = data[:SALT_LEN]
	p.RS = binary.BigEndian.Uint32(data[SALT_LEN : SALT_LEN+4])
	if idlen > 0 {
		p.KeyId = data[BASE_HEADER_LEN : BASE_HEADER_LEN+idlen]
	}
	p.CipherText = data[BASE_HEADER_LEN+idlen:]

	return p, nil
}
