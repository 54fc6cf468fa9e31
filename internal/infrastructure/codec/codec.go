package codec

import (
	"encoding/json"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/99minutos/user-directory/internal/core/domain"
)

const (
	JSON    = "json"
	MsgPack = "msgpack"
)

// Codec turns user records into store values and back.
type Codec interface {
	Name() string
	Marshal(u *domain.UserDB) ([]byte, error)
	Unmarshal(data []byte) (*domain.UserDB, error)
}

// New returns the codec registered under name. An empty name selects JSON.
func New(name string) (Codec, error) {
	switch name {
	case "", JSON:
		return jsonCodec{}, nil
	case MsgPack:
		return msgpackCodec{}, nil
	}
	return nil, fmt.Errorf("unknown codec %q", name)
}

type jsonCodec struct{}

func (jsonCodec) Name() string { return JSON }

func (jsonCodec) Marshal(u *domain.UserDB) ([]byte, error) {
	return json.Marshal(FromUser(u))
}

func (jsonCodec) Unmarshal(data []byte) (*domain.UserDB, error) {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode json record: %w", err)
	}
	return r.ToUser()
}

type msgpackCodec struct{}

func (msgpackCodec) Name() string { return MsgPack }

func (msgpackCodec) Marshal(u *domain.UserDB) ([]byte, error) {
	return msgpack.Marshal(FromUser(u))
}

func (msgpackCodec) Unmarshal(data []byte) (*domain.UserDB, error) {
	var r Record
	if err := msgpack.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode msgpack record: %w", err)
	}
	return r.ToUser()
}
